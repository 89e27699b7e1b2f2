package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store backend names accepted by ROLLCALL_STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config captures everything the server reads from the environment so main
// stays lean. Prefix is ROLLCALL_, e.g. ROLLCALL_TOKEN_TTL_SECONDS.
type Config struct {
	Addr         string `envconfig:"ADDR" default:":8080"`
	StoreBackend string `envconfig:"STORE_BACKEND" default:"memory"`
	RedisURL     string `envconfig:"REDIS_URL"`
	PostgresDSN  string `envconfig:"POSTGRES_DSN"`

	// TokenTTLSeconds bounds the replay window of a check-in token. Kept
	// short on purpose; raising it past a minute defeats the point.
	TokenTTLSeconds int `envconfig:"TOKEN_TTL_SECONDS" default:"15"`

	JWTSigningKey string `envconfig:"JWT_SIGNING_KEY" default:"dev-secret-key-change-in-production"`

	// BootstrapKey guards the initialize-database endpoint.
	BootstrapKey string `envconfig:"BOOTSTRAP_KEY" default:"dev-bootstrap-key"`

	AdminSessionTTL       time.Duration `envconfig:"ADMIN_SESSION_TTL" default:"24h"`
	ParticipantSessionTTL time.Duration `envconfig:"PARTICIPANT_SESSION_TTL" default:"168h"`
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("rollcall", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("ROLLCALL_REDIS_URL is required for the redis backend")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("ROLLCALL_POSTGRES_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.TokenTTLSeconds <= 0 {
		return fmt.Errorf("token TTL must be positive, got %d", c.TokenTTLSeconds)
	}
	return nil
}

// TokenTTL returns the configured token lifetime as a duration.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLSeconds) * time.Second
}
