package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL,   default=24h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`
	OpTimeout time.Duration `env:"OP_TIMEOUT, default=5s"`

	// AllowedOrigins lists browser origins accepted for CORS and websocket
	// upgrades. "*" accepts any.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Guidance  GuidanceConfig
	Hub       HubConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017/?replicaSet=rs0"`
	Database string        `env:"MONGO_DB,      default=sos_engine"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr         string        `env:"REDIS_ADDR,          default=localhost:6379"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB,            default=0"`
	Timeout      time.Duration `env:"REDIS_TIMEOUT,       default=5s"`
	RelayChannel string        `env:"REDIS_RELAY_CHANNEL, default=sos:hub"`
}

type GuidanceConfig struct {
	URL     string        `env:"GUIDANCE_URL"`
	APIKey  string        `env:"GUIDANCE_API_KEY"`
	Timeout time.Duration `env:"GUIDANCE_TIMEOUT, default=10s"`
	TTL     time.Duration `env:"GUIDANCE_TTL,     default=24h"`
}

type HubConfig struct {
	SendBuffer   int           `env:"HUB_SEND_BUFFER,   default=64"`
	WriteTimeout time.Duration `env:"HUB_WRITE_TIMEOUT, default=10s"`
	ChatWorkers  int           `env:"CHAT_WORKERS,      default=8"`
	// Per-connection chat-send budget.
	ChatRPS   float64 `env:"HUB_CHAT_RPS,   default=5"`
	ChatBurst int     `env:"HUB_CHAT_BURST, default=10"`
}

type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS,   default=1"`
	Burst int     `env:"RATE_LIMIT_BURST, default=5"`
}

type JobsConfig struct {
	GaugeSpec string `env:"JOBS_GAUGE_SPEC, default=@every 1m"`
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads an optional .env file, then configuration from environment
// variables using go-envconfig.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Sprintf("config: failed to read .env: %v", err))
	}
	cfg, err := Process(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// Process resolves configuration from l and validates it.
func Process(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" && c.IsProduction() {
		return errors.New("JWT_SECRET is required in production")
	}
	if c.Hub.SendBuffer <= 0 {
		return errors.New("HUB_SEND_BUFFER must be positive")
	}
	if c.Hub.ChatRPS <= 0 || c.Hub.ChatBurst <= 0 {
		return errors.New("HUB_CHAT_RPS and HUB_CHAT_BURST must be positive")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}
