// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, storage selection, authentication secrets,
// complaint workflow limits, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-complaints-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Store drivers accepted by STORE_DRIVER.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreFile     = "file"
)

// Development-only secrets. Release mode refuses to start with them.
const (
	defaultJWTSecret   = "your_jwt_secret_key"
	defaultAdminSecret = "admin_setup_secret"
	minReleaseSecret   = 16
)

// AuthConfig defines token signing, password hashing and admin provisioning.
type AuthConfig struct {
	JWTSecret   string        // JWT_SECRET (HS256 key)
	TokenTTL    time.Duration // TOKEN_TTL
	BcryptCost  int           // BCRYPT_COST in [4,31]
	AdminSecret string        // ADMIN_SECRET gate for POST /auth/admin/create
}

// ComplaintConfig tunes the complaint workflow and homepage aggregates.
type ComplaintConfig struct {
	MaxConsecutiveReplies int           // customer replies allowed before an admin must answer
	HomepageRecent        int           // recentComplaints size
	HomepageTopRated      int           // topRatedComplaints size
	DefaultResponseTime   time.Duration // shown when no complaint has an admin response yet
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	StoreDriver string // sqlite|postgres|file
	DBPath      string // SQLite path
	DatabaseURL string // Postgres DSN
	DataDir     string // directory holding users.json / complaints.json

	// Domain
	Auth       AuthConfig
	Complaints ComplaintConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// Storage
		StoreDriver: strings.ToLower(strings.TrimSpace(getenv("STORE_DRIVER", StoreSQLite))),
		DBPath:      getenv("DB_PATH", "complaints.db"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		DataDir:     getenv("DATA_DIR", "data"),

		// Domain
		Auth: AuthConfig{
			JWTSecret:   getenv("JWT_SECRET", defaultJWTSecret),
			TokenTTL:    getdur("TOKEN_TTL", 24*time.Hour),
			BcryptCost:  getint("BCRYPT_COST", 10),
			AdminSecret: getenv("ADMIN_SECRET", defaultAdminSecret),
		},
		Complaints: ComplaintConfig{
			MaxConsecutiveReplies: getint("MAX_CONSECUTIVE_REPLIES", 3),
			HomepageRecent:        getint("HOMEPAGE_RECENT", 5),
			HomepageTopRated:      getint("HOMEPAGE_TOP_RATED", 3),
			DefaultResponseTime:   getdur("DEFAULT_RESPONSE_TIME", 24*time.Hour),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-complaints-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		c.GinMode = "release"
	}
}

// validate reports every invalid setting at once, joined into one error.
func (c Config) validate() error {
	var errs []error
	fail := func(msg string) { errs = append(errs, errors.New(msg)) }
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		fail("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if blank(c.Port) {
		fail("PORT must not be empty")
	}
	if c.ReadTimeout <= 0 || c.ReadHeaderTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0 {
		fail("timeouts must be positive durations")
	}
	if c.MaxHeaderBytes <= 0 {
		fail("MAX_HEADER_BYTES must be > 0")
	}

	switch c.StoreDriver {
	case StoreSQLite:
		if blank(c.DBPath) {
			fail("DB_PATH must not be empty")
		}
	case StorePostgres:
		if blank(c.DatabaseURL) {
			fail("DATABASE_URL must be set when STORE_DRIVER=postgres")
		}
	case StoreFile:
		if blank(c.DataDir) {
			fail("DATA_DIR must not be empty")
		}
	default:
		fail("STORE_DRIVER must be one of: sqlite, postgres, file")
	}

	a := c.Auth
	if blank(a.JWTSecret) {
		fail("JWT_SECRET must not be empty")
	}
	if a.TokenTTL <= 0 {
		fail("TOKEN_TTL must be > 0")
	}
	if a.BcryptCost < 4 || a.BcryptCost > 31 {
		fail("BCRYPT_COST must be between 4 and 31")
	}
	if blank(a.AdminSecret) {
		fail("ADMIN_SECRET must not be empty")
	}
	if c.GinMode == "release" {
		for _, sec := range []struct{ key, val, def string }{
			{"JWT_SECRET", a.JWTSecret, defaultJWTSecret},
			{"ADMIN_SECRET", a.AdminSecret, defaultAdminSecret},
		} {
			if sec.val == sec.def || len(sec.val) < minReleaseSecret {
				fail(sec.key + " must be set to a non-default value of at least 16 bytes when GIN_MODE=release")
			}
		}
	}

	cc := c.Complaints
	if cc.MaxConsecutiveReplies < 1 {
		fail("MAX_CONSECUTIVE_REPLIES must be >= 1")
	}
	if cc.HomepageRecent < 0 || cc.HomepageTopRated < 0 {
		fail("HOMEPAGE_RECENT and HOMEPAGE_TOP_RATED must be >= 0")
	}
	if cc.DefaultResponseTime <= 0 {
		fail("DEFAULT_RESPONSE_TIME must be > 0")
	}

	if c.RateRPS < 0 {
		fail("RATE_RPS must be >= 0")
	}
	if c.RateBurst < 1 {
		fail("RATE_BURST must be >= 1")
	}
	if c.Security.HSTSMaxAge < 0 {
		fail("HSTS_MAX_AGE must be >= 0")
	}
	if c.IdempotencyTTL <= 0 {
		fail("IDEMPOTENCY_TTL must be > 0")
	}
	if c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1 {
		fail("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return errors.Join(errs...)
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
