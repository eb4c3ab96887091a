package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"recruitment-backend/internal/generation"
	"recruitment-backend/internal/llm"
	"recruitment-backend/internal/llm/gemini"
	openai "recruitment-backend/internal/llm/openai"
	"recruitment-backend/internal/recruitment"
	"recruitment-backend/internal/sessions"
	"recruitment-backend/internal/shared/config"
	"recruitment-backend/internal/shared/server"
	"recruitment-backend/internal/shared/storage/db"
	"recruitment-backend/internal/shared/storage/kv"
	"recruitment-backend/internal/shared/telemetry"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Redis    *redis.Client
	Backend  generation.Backend
	Sessions *sessions.Manager
	// Integration names the configured chat-completion API; empty when
	// generation is simulated.
	Integration string
}

// Build prepares dependencies and wires routes. Call Start to run background
// work and Close on shutdown.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg}

	backend, integration, err := BuildBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Backend = generation.Instrument(backend, cfg.GenerationTimeout)
	app.Integration = integration

	store, checks, err := app.buildStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Sessions = sessions.NewManager(sessions.Options{
		Backend: app.Backend,
		Store:   store,
		TTL:     cfg.SessionTTL,
	})

	app.Router = server.NewRouter(server.RouterDeps{
		Config:      cfg,
		Sessions:    sessions.NewHandler(app.Sessions, cfg.MaxUploadBytes),
		Recruitment: recruitment.NewHandler(app.Backend, recruitment.NewAbout(cfg.OrganizationName, integration), cfg.MaxUploadBytes),
		Checks:      checks,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":           cfg.Env,
		"backend":       app.Backend.Name(),
		"session_store": app.Config.SessionStore,
	})
	return app, nil
}

// Start runs the idle session sweeper.
func (a *App) Start() {
	a.Sessions.Start()
}

// Close tears down sessions and releases connections. Snapshots are kept.
func (a *App) Close() {
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

// BuildBackend selects the generation backend named by cfg and returns the
// integration label for the About copy. Missing credentials fall back to the
// simulated backend in dev-like environments.
func BuildBackend(ctx context.Context, cfg config.Config) (generation.Backend, string, error) {
	simulated := generation.NewSimulated(cfg.OrganizationName, cfg.JobSpecDelay, cfg.InterviewDelay)

	var (
		client      llm.Client
		integration string
		err         error
	)
	switch cfg.GenerationBackend {
	case "openai":
		integration = "OpenAI"
		client, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, openai.WithTimeout(cfg.GenerationTimeout))
	case "azure":
		integration = "Azure OpenAI"
		client, err = openai.NewAzureClient(cfg.AzureEndpoint, cfg.AzureAPIKey, cfg.AzureDeployment, cfg.AzureAPIVersion, openai.WithTimeout(cfg.GenerationTimeout))
	case "gemini":
		integration = "Google Gemini"
		client, err = gemini.NewClient(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.LLMModel})
	default:
		return simulated, "", nil
	}
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) && config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.backend_fallback", map[string]any{
				"backend": cfg.GenerationBackend,
				"error":   err,
			})
			return simulated, "", nil
		}
		return nil, "", fmt.Errorf("generation backend %s: %w", cfg.GenerationBackend, err)
	}
	return generation.NewModel(cfg.OrganizationName, client), integration, nil
}

func (a *App) buildStore(ctx context.Context) (sessions.Store, map[string]server.HealthCheck, error) {
	cfg := a.Config
	switch cfg.SessionStore {
	case "redis":
		client, err := kv.Connect(ctx, cfg.RedisURL, kv.DefaultOptions())
		if err != nil {
			return a.storeFallback(fmt.Errorf("connect redis: %w", err))
		}
		a.Redis = client
		return &sessions.RedisStore{Client: client}, map[string]server.HealthCheck{
			"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
		}, nil
	case "postgres":
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			return a.storeFallback(err)
		}
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return a.storeFallback(fmt.Errorf("run migrations: %w", err))
		}
		a.DB = sqlDB
		return &sessions.PGStore{DB: sqlDB}, map[string]server.HealthCheck{
			"postgres": sqlDB.PingContext,
		}, nil
	default:
		return sessions.NewMemoryStore(), nil, nil
	}
}

// storeFallback keeps dev-like environments running on the memory store.
func (a *App) storeFallback(err error) (sessions.Store, map[string]server.HealthCheck, error) {
	if !config.IsDevLike(a.Config.Env) {
		return nil, nil, err
	}
	telemetry.Warn("bootstrap.store_fallback", map[string]any{
		"session_store": a.Config.SessionStore,
		"error":         err,
	})
	a.Config.SessionStore = "memory"
	return sessions.NewMemoryStore(), nil, nil
}
