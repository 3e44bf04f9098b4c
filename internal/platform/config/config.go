package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration, read from the environment.
type Config struct {
	Environment string `env:"RANKGATE_ENV" envDefault:"development"`
	LogLevel    string `env:"RANKGATE_LOG_LEVEL" envDefault:"info"`

	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	Crypto    CryptoConfig
	Expiry    ExpiryConfig
	Outbox    OutboxConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
	Verifier  VerifierConfig
	Forum     ForumConfig
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr            string        `env:"RANKGATE_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"RANKGATE_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	RequestTimeout  time.Duration `env:"RANKGATE_REQUEST_TIMEOUT" envDefault:"30s"`
}

// PostgresConfig selects the database. An empty DSN runs every store in memory.
type PostgresConfig struct {
	DSN             string        `env:"RANKGATE_DATABASE_URL"`
	Driver          string        `env:"RANKGATE_DATABASE_DRIVER" envDefault:"postgres"`
	MaxOpenConns    int           `env:"RANKGATE_DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"RANKGATE_DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"RANKGATE_DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	Migrate         bool          `env:"RANKGATE_DATABASE_MIGRATE" envDefault:"true"`
}

// RedisConfig configures the shared Redis client. An empty URL disables Redis.
type RedisConfig struct {
	URL          string        `env:"RANKGATE_REDIS_URL"`
	PoolSize     int           `env:"RANKGATE_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"RANKGATE_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"RANKGATE_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"RANKGATE_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"RANKGATE_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

type KafkaConfig struct {
	Enabled  bool     `env:"RANKGATE_KAFKA_ENABLED" envDefault:"false"`
	Brokers  []string `env:"RANKGATE_KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic    string   `env:"RANKGATE_KAFKA_TOPIC" envDefault:"rankgate.domain-events"`
	ClientID string   `env:"RANKGATE_KAFKA_CLIENT_ID" envDefault:"rankgate"`
}

type AuthConfig struct {
	SigningKey string        `env:"RANKGATE_JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	Issuer     string        `env:"RANKGATE_JWT_ISSUER" envDefault:"rankgate"`
	Audience   string        `env:"RANKGATE_JWT_AUDIENCE" envDefault:"rankgate-api"`
	TokenTTL   time.Duration `env:"RANKGATE_TOKEN_TTL" envDefault:"1h"`

	// ID tokens presented at login are checked against the identity provider's
	// shared secret, issuer and client id.
	IDTokenKey      string `env:"RANKGATE_OIDC_ID_TOKEN_KEY" envDefault:"dev-oidc-secret"`
	IDTokenIssuer   string `env:"RANKGATE_OIDC_ISSUER" envDefault:"https://access.line.me"`
	IDTokenAudience string `env:"RANKGATE_OIDC_CLIENT_ID" envDefault:"rankgate-dev"`
}

type CryptoConfig struct {
	FieldKey string `env:"RANKGATE_FIELD_ENCRYPTION_KEY" envDefault:"dev-field-key-change-in-production"`
}

type ExpiryConfig struct {
	SweepInterval     time.Duration `env:"RANKGATE_EXPIRY_SWEEP_INTERVAL" envDefault:"1m"`
	GracePeriod       time.Duration `env:"RANKGATE_EXPIRY_GRACE_PERIOD" envDefault:"5m"`
	DailyMatchTTL     time.Duration `env:"RANKGATE_DAILY_MATCH_TTL" envDefault:"24h"`
	GroupInitiatedTTL time.Duration `env:"RANKGATE_GROUP_INITIATED_TTL" envDefault:"72h"`
	VerificationTTL   time.Duration `env:"RANKGATE_VERIFICATION_TTL" envDefault:"10m"`
	SaveRetryAttempts int           `env:"RANKGATE_SAVE_RETRY_ATTEMPTS" envDefault:"3"`
}

type OutboxConfig struct {
	RelayInterval time.Duration `env:"RANKGATE_OUTBOX_RELAY_INTERVAL" envDefault:"2s"`
	BatchSize     int           `env:"RANKGATE_OUTBOX_BATCH_SIZE" envDefault:"100"`
}

type RateLimitConfig struct {
	Backend   string        `env:"RANKGATE_RATE_LIMIT_BACKEND" envDefault:"memory"`
	PerMinute int           `env:"RANKGATE_RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	Burst     int           `env:"RANKGATE_RATE_LIMIT_BURST" envDefault:"20"`
	IdleTTL   time.Duration `env:"RANKGATE_RATE_LIMIT_IDLE_TTL" envDefault:"10m"`
	// Consecutive Redis errors before falling back to local buckets, and
	// consecutive successes before switching back.
	BreakerFailures  int `env:"RANKGATE_RATE_LIMIT_BREAKER_FAILURES" envDefault:"5"`
	BreakerSuccesses int `env:"RANKGATE_RATE_LIMIT_BREAKER_SUCCESSES" envDefault:"3"`
}

type TracingConfig struct {
	Enabled     bool    `env:"RANKGATE_TRACING_ENABLED" envDefault:"false"`
	Endpoint    string  `env:"RANKGATE_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	Insecure    bool    `env:"RANKGATE_OTLP_INSECURE" envDefault:"true"`
	SampleRatio float64 `env:"RANKGATE_TRACE_SAMPLE_RATIO" envDefault:"1.0"`
	ServiceName string  `env:"RANKGATE_SERVICE_NAME" envDefault:"rankgate"`
}

// VerifierConfig points at the external Rank Card verifier. An empty base URL
// uses the static development verifier.
type VerifierConfig struct {
	BaseURL string        `env:"RANKGATE_VERIFIER_URL"`
	Timeout time.Duration `env:"RANKGATE_VERIFIER_TIMEOUT" envDefault:"10s"`
	DevRank string        `env:"RANKGATE_VERIFIER_DEV_RANK" envDefault:"QUASI_WEALTHY_VIP"`
}

type ForumConfig struct {
	JoinRetryAttempts int `env:"RANKGATE_FORUM_JOIN_RETRIES" envDefault:"5"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProduction reports whether development defaults must be rejected.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func (c Config) Validate() error {
	var errs []error
	switch c.Postgres.Driver {
	case "postgres", "pgx":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Postgres.Driver))
	}
	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis rate limit backend requires RANKGATE_REDIS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported rate limit backend %q", c.RateLimit.Backend))
	}
	if c.RateLimit.PerMinute <= 0 {
		errs = append(errs, errors.New("rate limit per minute must be positive"))
	}
	if c.Expiry.SweepInterval <= 0 || c.Outbox.RelayInterval <= 0 {
		errs = append(errs, errors.New("sweep and relay intervals must be positive"))
	}
	if c.Expiry.GracePeriod < 0 {
		errs = append(errs, errors.New("grace period cannot be negative"))
	}
	if c.Expiry.DailyMatchTTL <= 0 || c.Expiry.GroupInitiatedTTL <= 0 {
		errs = append(errs, errors.New("session durations must be positive"))
	}
	if len(c.Auth.SigningKey) < 16 {
		errs = append(errs, errors.New("jwt signing key must be at least 16 bytes"))
	}
	if c.IsProduction() {
		if strings.HasPrefix(c.Auth.SigningKey, "dev-") || strings.HasPrefix(c.Crypto.FieldKey, "dev-") {
			errs = append(errs, errors.New("development secrets are not allowed in production"))
		}
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("production requires RANKGATE_DATABASE_URL"))
		}
	}
	return errors.Join(errs...)
}
