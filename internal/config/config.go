package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Policy    PolicyConfig    `yaml:"policy"`
	Send      SendConfig      `yaml:"send"`
	Conflict  ConflictConfig  `yaml:"conflict"`
	Anomaly   AnomalyConfig   `yaml:"anomaly"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"15s"`
	// TrustProxy takes the client origin from X-Forwarded-For.
	TrustProxy bool `yaml:"trust_proxy" env:"SERVER_TRUST_PROXY" env-default:"false"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	// WriteTimeout bounds durable writes that run detached from the caller.
	WriteTimeout time.Duration `yaml:"write_timeout" env:"DATABASE_WRITE_TIMEOUT" env-default:"10s"`
}

// AuthConfig holds bearer token verification settings. Tokens are issued
// elsewhere; this service only verifies them.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET" env-required:"true"`
	JWTIssuer string `yaml:"jwt_issuer" env:"AUTH_JWT_ISSUER" env-default:"casegate"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// PolicyConfig selects the action to role table. An empty path uses the
// table compiled into the binary.
type PolicyConfig struct {
	RulesPath string `yaml:"rules_path" env:"POLICY_RULES_PATH"`
}

// SendConfig holds send-gate settings.
type SendConfig struct {
	LeaseBackend     string        `yaml:"lease_backend"     env:"SEND_LEASE_BACKEND"     env-default:"postgres"`
	LeaseTTL         time.Duration `yaml:"lease_ttl"         env:"SEND_LEASE_TTL"         env-default:"45s"`
	TransportMode    string        `yaml:"transport_mode"    env:"SEND_TRANSPORT_MODE"    env-default:"stub"`
	TransportURL     string        `yaml:"transport_url"     env:"SEND_TRANSPORT_URL"`
	TransportToken   string        `yaml:"transport_token"   env:"SEND_TRANSPORT_TOKEN"`
	TransportTimeout time.Duration `yaml:"transport_timeout" env:"SEND_TRANSPORT_TIMEOUT" env-default:"20s"`
}

// ConflictConfig holds conflict matcher settings.
type ConflictConfig struct {
	MaxMatchesPerName   int     `yaml:"max_matches_per_name"  env:"CONFLICT_MAX_MATCHES_PER_NAME"  env-default:"5"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"  env:"CONFLICT_SIMILARITY_THRESHOLD"  env-default:"0.85"`
	MinSimilarNameLen   int     `yaml:"min_similar_name_len"  env:"CONFLICT_MIN_SIMILAR_NAME_LEN"  env-default:"4"`
}

// AnomalyConfig holds quick-approval scan settings.
type AnomalyConfig struct {
	MinQuickCount    int           `yaml:"min_quick_count"   env:"ANOMALY_MIN_QUICK_COUNT"   env-default:"5"`
	DefaultThreshold time.Duration `yaml:"default_threshold" env:"ANOMALY_DEFAULT_THRESHOLD" env-default:"30s"`
	DefaultWindow    time.Duration `yaml:"default_window"    env:"ANOMALY_DEFAULT_WINDOW"    env-default:"168h"`
}

// RateLimitConfig holds per-actor request limits.
type RateLimitConfig struct {
	Enabled   bool `yaml:"enabled"    env:"RATELIMIT_ENABLED"    env-default:"true"`
	PerMinute int  `yaml:"per_minute" env:"RATELIMIT_PER_MINUTE" env-default:"120"`
	Burst     int  `yaml:"burst"      env:"RATELIMIT_BURST"      env-default:"20"`
}
