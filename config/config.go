package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment is the deployment stage, read from APP_ENV.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config is the process configuration shared by the api, worker and
// migrate commands.
type Config struct {
	App           AppConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	HTTP          HTTPConfig
	Auth          AuthConfig
	Progression   ProgressionConfig
	Realtime      RealtimeConfig
	Scheduler     SchedulerConfig
	Observability ObservabilityConfig
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Name        string
	Environment Environment
	Debug       bool
	Version     string

	// Timezone for calendar days (streaks, weekly XP, snapshots).
	Timezone string
	Location *time.Location

	ShutdownTimeout time.Duration
}

// DatabaseConfig selects the store. An empty URL runs on the in-memory
// store; DB_HOST and friends compose a URL when DATABASE_URL is unset.
type DatabaseConfig struct {
	URL string

	MaxConns int32
	MinConns int32

	// Apply embedded migrations at startup.
	AutoMigrate bool
}

// RedisConfig backs the overview cache, realtime fan-out and job locks.
// REDIS_URL wins over the individual fields.
type RedisConfig struct {
	URL      string
	Host     string
	Port     int
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Disabled defaults to true when neither REDIS_URL nor REDIS_HOST is set.
	Disabled bool
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	AllowedOrigins     []string
	RateLimitPerMinute int
	TrustedProxies     []string
}

// AuthConfig holds JWT verification settings.
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

// ProgressionConfig holds the XP tables.
type ProgressionConfig struct {
	// LevelThresholds[i] is the minimum XP of level i+1.
	LevelThresholds []int

	// RewardMilestones are XP totals that unlock a reward notification.
	RewardMilestones []int

	// StreakMilestones are streak lengths that earn a study-streak notification.
	StreakMilestones []int

	// CompletionXP is granted when a course completes. 0 disables it.
	CompletionXP int
}

// RealtimeConfig holds push delivery settings.
type RealtimeConfig struct {
	PublishTimeout time.Duration
	AllowedOrigins []string
}

// SchedulerConfig drives cmd/worker.
type SchedulerConfig struct {
	Enabled bool

	// Cron specs, evaluated in App.Location.
	RecomputeSpec string
	SnapshotSpec  string

	// LockTTL bounds how long one worker holds a job lock.
	LockTTL time.Duration

	PageSize int
}

// ObservabilityConfig selects the zap level and encoder.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // "json" or "console"
}

// Load reads an optional .env file, then the environment. Variables already
// set in the environment win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds and validates a Config from the process environment. Every
// malformed or invalid value is reported, not just the first.
func FromEnv() (*Config, error) {
	e := &env{}
	cfg := &Config{
		App:      loadApp(e),
		Database: loadDatabase(e),
		Redis:    loadRedis(e),
		HTTP:     loadHTTP(e),
		Auth: AuthConfig{
			JWTSecret: e.str("JWT_SECRET", ""),
			JWTIssuer: e.str("JWT_ISSUER", ""),
		},
		Progression: ProgressionConfig{
			LevelThresholds:  e.ints("LEVEL_THRESHOLDS", []int{0, 100, 250, 500, 1000, 2000, 4000, 8000}),
			RewardMilestones: e.ints("REWARD_MILESTONES", []int{100, 250, 500, 1000, 2000, 5000}),
			StreakMilestones: e.ints("STREAK_MILESTONES", []int{3, 7, 14, 30}),
			CompletionXP:     e.integer("COURSE_COMPLETION_XP", 0),
		},
		Scheduler: SchedulerConfig{
			Enabled:       e.boolean("SCHEDULER_ENABLED", true),
			RecomputeSpec: e.str("SCHEDULER_RECOMPUTE_SPEC", "30 2 * * *"),
			SnapshotSpec:  e.str("SCHEDULER_SNAPSHOT_SPEC", "5 0 * * *"),
			LockTTL:       e.duration("SCHEDULER_LOCK_TTL", 30*time.Minute),
			PageSize:      e.integer("SCHEDULER_PAGE_SIZE", 500),
		},
		Observability: ObservabilityConfig{
			LogLevel:  e.str("LOG_LEVEL", "info"),
			LogFormat: e.str("LOG_FORMAT", "json"),
		},
	}
	cfg.Realtime = RealtimeConfig{
		PublishTimeout: e.duration("REALTIME_PUBLISH_TIMEOUT", 2*time.Second),
		AllowedOrigins: e.list("WS_ALLOWED_ORIGINS", cfg.HTTP.AllowedOrigins),
	}

	if err := cfg.validate(e.errs); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func loadApp(e *env) AppConfig {
	environment := Environment(e.str("APP_ENV", string(EnvDevelopment)))
	tz := e.str("APP_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		e.fail("APP_TIMEZONE %q: %v", tz, err)
		loc = time.UTC
	}
	return AppConfig{
		Name:            e.str("APP_NAME", "yonna-akademia"),
		Environment:     environment,
		Debug:           environment == EnvDevelopment || e.boolean("APP_DEBUG", false),
		Version:         e.str("APP_VERSION", "0.1.0"),
		Timezone:        tz,
		Location:        loc,
		ShutdownTimeout: e.duration("APP_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func loadDatabase(e *env) DatabaseConfig {
	dsn := e.str("DATABASE_URL", "")
	if host, user := e.str("DB_HOST", ""), e.str("DB_USER", ""); dsn == "" && host != "" && user != "" {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(user, e.str("DB_PASSWORD", "")),
			Host:     net.JoinHostPort(host, e.str("DB_PORT", "5432")),
			Path:     "/" + e.str("DB_NAME", "postgres"),
			RawQuery: url.Values{"sslmode": {e.str("DB_SSLMODE", "require")}}.Encode(),
		}
		dsn = u.String()
	}
	return DatabaseConfig{
		URL:         dsn,
		MaxConns:    int32(e.integer("DB_MAX_CONNS", 10)),
		MinConns:    int32(e.integer("DB_MIN_CONNS", 2)),
		AutoMigrate: e.boolean("DB_AUTO_MIGRATE", true),
	}
}

func loadRedis(e *env) RedisConfig {
	rawURL := e.str("REDIS_URL", "")
	return RedisConfig{
		URL:          rawURL,
		Host:         e.str("REDIS_HOST", "localhost"),
		Port:         e.integer("REDIS_PORT", 6379),
		Password:     e.str("REDIS_PASSWORD", ""),
		DB:           e.integer("REDIS_DB", 0),
		PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
		MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		Disabled:     e.boolean("REDIS_DISABLED", rawURL == "" && os.Getenv("REDIS_HOST") == ""),
	}
}

func loadHTTP(e *env) HTTPConfig {
	return HTTPConfig{
		Host:               e.str("HTTP_HOST", "0.0.0.0"),
		Port:               e.integer("HTTP_PORT", 8080),
		ReadTimeout:        e.duration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:       e.duration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:        e.duration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		AllowedOrigins:     e.list("HTTP_ALLOWED_ORIGINS", nil),
		RateLimitPerMinute: e.integer("HTTP_RATE_LIMIT_PER_MINUTE", 300),
		TrustedProxies:     e.list("HTTP_TRUSTED_PROXIES", nil),
	}
}

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	return c.validate(nil)
}

func (c *Config) validate(errs []string) error {
	if c.Auth.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}
	if c.IsProduction() && c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required in production")
	}

	switch th := c.Progression.LevelThresholds; {
	case len(th) == 0:
		errs = append(errs, "LEVEL_THRESHOLDS must not be empty")
	case th[0] != 0:
		errs = append(errs, "LEVEL_THRESHOLDS must start at 0")
	case !strictlyAscending(th):
		errs = append(errs, "LEVEL_THRESHOLDS must be strictly ascending")
	}
	if !strictlyAscending(c.Progression.RewardMilestones) {
		errs = append(errs, "REWARD_MILESTONES must be strictly ascending")
	}
	if !strictlyAscending(c.Progression.StreakMilestones) {
		errs = append(errs, "STREAK_MILESTONES must be strictly ascending")
	}
	if c.Progression.CompletionXP < 0 {
		errs = append(errs, "COURSE_COMPLETION_XP must not be negative")
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, "HTTP_PORT must be 1-65535")
	}
	if c.HTTP.RateLimitPerMinute < 0 {
		errs = append(errs, "HTTP_RATE_LIMIT_PER_MINUTE must not be negative")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
}

func strictlyAscending(v []int) bool {
	for i := 1; i < len(v); i++ {
		if v[i] <= v[i-1] {
			return false
		}
	}
	return true
}

// IsDevelopment reports APP_ENV=development.
func (c *Config) IsDevelopment() bool { return c.App.Environment == EnvDevelopment }

// IsProduction reports APP_ENV=production.
func (c *Config) IsProduction() bool { return c.App.Environment == EnvProduction }

// ══════════════════════════════════════════════════════════════════════════════
// ENVIRONMENT READER
// ══════════════════════════════════════════════════════════════════════════════

// env reads variables with defaults and collects parse failures. A malformed
// value falls back to the default and is reported.
type env struct {
	errs []string
}

func (e *env) fail(format string, args ...any) {
	e.errs = append(e.errs, fmt.Sprintf(format, args...))
}

func (e *env) str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func lookup[T any](e *env, key string, def T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		e.fail("%s: %q is not a valid %T", key, raw, def)
		return def
	}
	return v
}

func (e *env) boolean(key string, def bool) bool {
	return lookup(e, key, def, strconv.ParseBool)
}

func (e *env) integer(key string, def int) int {
	return lookup(e, key, def, strconv.Atoi)
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	return lookup(e, key, def, time.ParseDuration)
}

func (e *env) list(key string, def []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ints parses a comma-separated list of integers.
func (e *env) ints(key string, def []int) []int {
	parts := e.list(key, nil)
	if parts == nil {
		return def
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			e.fail("%s: %q is not an integer", key, p)
			return def
		}
		out = append(out, n)
	}
	return out
}
