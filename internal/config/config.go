package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	StoreDriver     string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	MongoURI        string        `mapstructure:"MONGODB_URI"`
	MongoDatabase   string        `mapstructure:"MONGODB_DATABASE"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	SessionTTL      time.Duration `mapstructure:"SESSION_TTL"`
	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	JWTTTL          time.Duration `mapstructure:"JWT_TTL"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	StoreTimeout    time.Duration `mapstructure:"STORE_TIMEOUT"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BundlePath      string        `mapstructure:"BUNDLE_PATH"`
	KafkaBrokers    []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic      string        `mapstructure:"KAFKA_TOPIC"`
	CarePlanURL     string        `mapstructure:"CAREPLAN_API_URL"`
	CarePlanAPIKey  string        `mapstructure:"OPENROUTER_API_KEY"`
	CarePlanTimeout time.Duration `mapstructure:"CAREPLAN_TIMEOUT"`
	CarePlanModel   string        `mapstructure:"CAREPLAN_DEFAULT_MODEL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("MONGODB_DATABASE", "frat")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("KAFKA_TOPIC", "frat.assessments")
	v.SetDefault("CAREPLAN_API_URL", "https://openrouter.ai/api/v1/chat/completions")
	v.SetDefault("CAREPLAN_TIMEOUT", "60s")
	v.SetDefault("CAREPLAN_DEFAULT_MODEL", "gemma")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "STORE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"MONGODB_URI", "MONGODB_DATABASE", "REDIS_URL", "SESSION_TTL", "JWT_SECRET",
		"JWT_TTL", "CORS_ORIGINS", "STORE_TIMEOUT", "REQUEST_TIMEOUT", "BUNDLE_PATH",
		"KAFKA_BROKERS", "KAFKA_TOPIC", "CAREPLAN_API_URL", "OPENROUTER_API_KEY",
		"CAREPLAN_TIMEOUT", "CAREPLAN_DEFAULT_MODEL",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	case DriverMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGODB_URI is required when STORE_DRIVER is %q", DriverMongo)
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be %q, %q or %q, got %q",
			DriverPostgres, DriverMongo, DriverMemory, cfg.StoreDriver)
	}

	if cfg.IsDev() && cfg.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is not set; using an insecure development secret.")
		cfg.JWTSecret = "frat-development-secret"
	}

	return cfg, nil
}

// splitList normalizes comma separated values that viper may deliver either
// split or as a single element.
func splitList(parsed []string, raw string) []string {
	if len(parsed) == 0 && raw != "" {
		parsed = []string{raw}
	}
	var out []string
	for _, chunk := range parsed {
		for _, item := range strings.Split(chunk, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Production requires
// an explicit JWT secret and bounded storage calls.
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.IsProduction() && c.StoreDriver == DriverMemory {
		return fmt.Errorf("STORE_DRIVER %q is not allowed in production", DriverMemory)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.StoreTimeout)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}
