package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"recruitment-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port             string
	Env              string
	CORSAllowOrigin  []string
	LogLevel         string
	LogFormat        string
	OrganizationName string

	GenerationBackend string
	JobSpecDelay      time.Duration
	InterviewDelay    time.Duration
	GenerationTimeout time.Duration
	LLMModel          string
	OpenAIAPIKey      string
	AzureEndpoint     string
	AzureAPIKey       string
	AzureAPIVersion   string
	AzureDeployment   string
	GeminiAPIKey      string

	SessionStore string
	SessionTTL   time.Duration
	RedisURL     string
	DatabaseURL  string

	MaxUploadBytes         int64
	GenerateRateLimitRPS   float64
	GenerateRateLimitBurst int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	env := normalizeEnv(v.GetString("ENV"))
	store := normalizeSessionStore(v.GetString("SESSION_STORE"))
	if env == "production" && store == "memory" {
		telemetry.Warn("config.memory_store_in_production", map[string]any{
			"detail": "sessions will not survive restarts",
		})
	}

	return Config{
		Port:             v.GetString("PORT"),
		Env:              env,
		CORSAllowOrigin:  splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		LogLevel:         strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		LogFormat:        strings.ToLower(strings.TrimSpace(v.GetString("LOG_FORMAT"))),
		OrganizationName: v.GetString("ORGANIZATION_NAME"),

		GenerationBackend: normalizeBackend(v.GetString("GENERATION_BACKEND")),
		JobSpecDelay:      v.GetDuration("JOB_SPEC_DELAY"),
		InterviewDelay:    v.GetDuration("INTERVIEW_DELAY"),
		GenerationTimeout: v.GetDuration("GENERATION_TIMEOUT"),
		LLMModel:          v.GetString("LLM_MODEL"),
		OpenAIAPIKey:      v.GetString("OPENAI_API_KEY"),
		AzureEndpoint:     strings.TrimRight(v.GetString("AZURE_OPENAI_ENDPOINT"), "/"),
		AzureAPIKey:       v.GetString("AZURE_OPENAI_API_KEY"),
		AzureAPIVersion:   v.GetString("AZURE_OPENAI_API_VERSION"),
		AzureDeployment:   v.GetString("AZURE_OPENAI_DEPLOYMENT"),
		GeminiAPIKey:      v.GetString("GEMINI_API_KEY"),

		SessionStore: store,
		SessionTTL:   v.GetDuration("SESSION_TTL"),
		RedisURL:     v.GetString("REDIS_URL"),
		DatabaseURL:  v.GetString("DATABASE_URL"),

		MaxUploadBytes:         v.GetInt64("MAX_UPLOAD_BYTES"),
		GenerateRateLimitRPS:   v.GetFloat64("RATE_LIMIT_GENERATE_RPS"),
		GenerateRateLimitBurst: v.GetInt("RATE_LIMIT_GENERATE_BURST"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ORGANIZATION_NAME", "UBS Global Investment Center")
	v.SetDefault("GENERATION_BACKEND", "simulated")
	v.SetDefault("JOB_SPEC_DELAY", "2s")
	v.SetDefault("INTERVIEW_DELAY", "2500ms")
	v.SetDefault("GENERATION_TIMEOUT", "60s")
	v.SetDefault("LLM_MODEL", "gpt-4")
	v.SetDefault("AZURE_OPENAI_API_VERSION", "2023-05-15")
	v.SetDefault("AZURE_OPENAI_DEPLOYMENT", "gpt-4")
	v.SetDefault("SESSION_STORE", "memory")
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("RATE_LIMIT_GENERATE_RPS", 0.5)
	v.SetDefault("RATE_LIMIT_GENERATE_BURST", 5)
}

// loadEnvFiles loads KEY=VALUE pairs from the given files if they exist.
// Variables already present in the environment win.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		_ = godotenv.Load(path)
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "azure", "azure-openai":
		return "azure"
	case "gemini":
		return "gemini"
	default:
		return "simulated"
	}
}

func normalizeSessionStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "redis":
		return "redis"
	case "postgres", "pg":
		return "postgres"
	default:
		return "memory"
	}
}

// IsDevLike reports whether env allows falling back to in-memory dependencies.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
