package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	SLA          SLAConfig
	Jobs         JobsConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// SLAConfig carries global SLA fallbacks. DefaultResolutionHours is the
// baseline window used to size the auto-escalation threshold;
// per-priority budgets live in the sla_policies table.
type SLAConfig struct {
	DefaultResolutionHours  int
	EscalateAfterMultiplier int
}

// JobsConfig defines periodic maintenance scheduling.
type JobsConfig struct {
	Enabled              bool
	BreachScanInterval   time.Duration
	AutoEscalateInterval time.Duration
	AssignmentInterval   time.Duration
	DailyStatsInterval   time.Duration
	StatsCacheTTL        time.Duration
	JobTimeoutSeconds    int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "complaint-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		SLA: SLAConfig{
			DefaultResolutionHours:  getEnvAsInt("SLA_DEFAULT_RESOLUTION_HOURS", 72),
			EscalateAfterMultiplier: getEnvAsInt("SLA_ESCALATE_AFTER_MULTIPLIER", 2),
		},
		Jobs: JobsConfig{
			Enabled:              getEnvAsBool("JOBS_ENABLED", true),
			BreachScanInterval:   getEnvAsMinutes("JOBS_BREACH_SCAN_INTERVAL_MINUTES", 60),
			AutoEscalateInterval: getEnvAsMinutes("JOBS_AUTO_ESCALATE_INTERVAL_MINUTES", 120),
			AssignmentInterval:   getEnvAsMinutes("JOBS_ASSIGNMENT_INTERVAL_MINUTES", 15),
			DailyStatsInterval:   getEnvAsMinutes("JOBS_DAILY_STATS_INTERVAL_MINUTES", 60),
			StatsCacheTTL:        getEnvAsMinutes("JOBS_STATS_CACHE_TTL_MINUTES", 1440),
			JobTimeoutSeconds:    getEnvAsInt("JOBS_TIMEOUT_SECONDS", 120),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// EscalateThreshold returns the age past which a breached complaint is
// auto-escalated.
func (s SLAConfig) EscalateThreshold() time.Duration {
	hours := s.DefaultResolutionHours
	if hours <= 0 {
		hours = 72
	}
	multiplier := s.EscalateAfterMultiplier
	if multiplier <= 0 {
		multiplier = 2
	}
	return time.Duration(hours*multiplier) * time.Hour
}

// JobTimeout bounds a single maintenance run.
func (j JobsConfig) JobTimeout() time.Duration {
	if j.JobTimeoutSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(j.JobTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsMinutes(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Minute
}
