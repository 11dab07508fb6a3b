// Package httpapi wires the HTTP transport (Gin) to the application services,
// middleware and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, redacted access logs, panic recovery, metrics,
// CORS, compression, security headers, authentication, idempotent creates and
// rate limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/tbourn/go-complaints-backend/docs"
	"github.com/tbourn/go-complaints-backend/internal/config"
	"github.com/tbourn/go-complaints-backend/internal/flatfile"
	"github.com/tbourn/go-complaints-backend/internal/http/handlers"
	"github.com/tbourn/go-complaints-backend/internal/http/middleware"
	"github.com/tbourn/go-complaints-backend/internal/repo"
	"github.com/tbourn/go-complaints-backend/internal/services"
)

// AuthService is what the router needs from the account service: the
// handler use-cases plus token verification for the auth middleware.
// *services.AuthService satisfies it.
type AuthService interface {
	handlers.AuthService
	middleware.Verifier
}

// Deps are the services the routes dispatch to. Idempotency is optional;
// without it Idempotency-Key is still validated and forwarded to the
// complaint service, but replays are not exempted from rate limiting.
type Deps struct {
	Auth        AuthService
	Complaints  handlers.ComplaintService
	Homepage    handlers.HomepageService
	Idempotency services.IdempotencyRepo
}

var (
	corsMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey}
	corsExpose  = []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", middleware.HeaderIdempotencyReplayed}
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Access log: RedactingLogger, or the verbose Logger with LOG_PRETTY
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS, security headers and gzip
//
// Per group, after the caller is known:
//  8. Authenticate (protected routes)
//  9. Idempotency validator (complaint creation, before the limiter so
//     replays bypass it)
//  10. Rate limiter (per user, per IP for public routes)
func RegisterRoutes(r *gin.Engine, cfg config.Config, d Deps) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(accessLogger(cfg))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(middleware.Metrics())
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(d.Auth, d.Complaints, d.Homepage)
	limit := rateLimit(cfg)
	authn := middleware.Authenticate(d.Auth)
	idem := middleware.IdempotencyValidator(middleware.IdempotencyOptions{
		MaxLen: 200,
		Scope:  services.ScopeCreateComplaint,
	}, idempotencyLookup(d.Idempotency))
	noStore := middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true})

	api := groupWithPrefix(r, cfg.APIBasePath)

	// Public
	{
		acct := api.Group("/auth", noStore, limit)
		acct.POST("/register", h.Register)
		acct.POST("/login", h.Login)
		acct.POST("/admin/create", h.CreateAdmin)

		api.GET("/homepage/data", limit, h.HomepageData)
	}

	// Authenticated
	{
		api.GET("/auth/profile", noStore, authn, limit, h.GetProfile)
		api.PUT("/auth/profile", noStore, authn, limit, h.UpdateProfile)

		api.POST("/complaints", authn, idem, limit, h.CreateComplaint)

		cs := api.Group("/complaints", authn, limit)
		cs.GET("", h.ListComplaints)
		cs.GET("/:id", h.GetComplaint)
		cs.POST("/:id/respond", h.RespondToComplaint)
		cs.PATCH("/:id/status", middleware.RequireAdmin(), h.UpdateComplaintStatus)
		cs.POST("/:id/rate", h.RateComplaint)
	}
}

// accessLogger picks the verbose console logger for local development and
// the PII-scrubbing one everywhere else.
func accessLogger(cfg config.Config) gin.HandlerFunc {
	if cfg.LogPretty {
		return middleware.Logger()
	}
	return middleware.RedactingLogger(middleware.RedactOptions{
		SkipPaths: []string{"/health", "/metrics"},
	})
}

// corsMiddleware allows any origin when none are configured; otherwise it
// echoes allowlisted origins.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	if len(origins) == 0 {
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     corsMethods,
				AllowHeaders:     corsHeaders,
				ExposeHeaders:    corsExpose,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    corsExpose,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// rateLimit returns the shared token-bucket limiter, or a pass-through when
// RATE_RPS is 0.
func rateLimit(cfg config.Config) gin.HandlerFunc {
	if cfg.RateRPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).Handler()
}

// idempotencyLookup adapts either store backend to the middleware's lookup.
func idempotencyLookup(store services.IdempotencyRepo) middleware.IdempotencyLookup {
	if store == nil {
		return nil
	}
	return func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
		rec, err := store.Get(ctx, userID, scope, key, now)
		switch {
		case errors.Is(err, repo.ErrNotFound), errors.Is(err, flatfile.ErrNotFound):
			return false, nil
		case err != nil:
			return false, err
		}
		return rec != nil, nil
	}
}

// limitBody caps the request body at maxBytes; larger bodies fail to decode.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
