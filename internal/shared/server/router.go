package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"recruitment-backend/internal/recruitment"
	"recruitment-backend/internal/sessions"
	"recruitment-backend/internal/shared/config"
	"recruitment-backend/internal/shared/metrics"
	"recruitment-backend/internal/shared/server/middleware"
	"recruitment-backend/internal/shared/server/respond"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterDeps carries the handlers mounted by NewRouter.
type RouterDeps struct {
	Config      config.Config
	Sessions    *sessions.Handler
	Recruitment *recruitment.Handler
	// Checks are run by /health, keyed by dependency name.
	Checks      map[string]HealthCheck
	RateLimiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(nil)
	}
	generate := middleware.GenerateRateLimit(deps.Config.GenerateRateLimitRPS, deps.Config.GenerateRateLimitBurst, limiter)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", health(deps.Checks))
	if deps.Recruitment != nil {
		deps.Recruitment.RegisterRoutes(api, generate)
	}
	if deps.Sessions != nil {
		deps.Sessions.RegisterRoutes(api, generate)
	}

	return r
}

func health(checks map[string]HealthCheck) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		ok := true
		results := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				ok = false
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, gin.H{"ok": ok, "checks": results})
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
