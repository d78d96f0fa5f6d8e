// Package config loads service settings from the environment and an
// optional .env file.
package config

import (
	"context"
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/MrEthical07/contentauth"
)

// Config holds runtime configuration for contentauthd.
type Config struct {
	Addr string `env:"ADDR,default=:8080"`

	AccessTokenPrivateKey string `env:"ACCESS_TOKEN_PRIVATE_KEY"`
	AccessTokenPublicKey  string `env:"ACCESS_TOKEN_PUBLIC_KEY"`
	AccessTokenMaxAge     int    `env:"ACCESS_TOKEN_MAXAGE,default=60"` // minutes
	TokenIssuer           string `env:"ACCESS_TOKEN_ISSUER"`

	RedisURL         string        `env:"REDIS_URL,default=redis://localhost:6379/0"`
	SessionKeyPrefix string        `env:"SESSION_KEY_PREFIX,default=cs"`
	SessionOpTimeout time.Duration `env:"SESSION_OP_TIMEOUT,default=500ms"`

	DatabaseURL string `env:"DATABASE_URL"`
	HashWorkers int    `env:"HASH_WORKERS,default=0"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	NATSURL      string `env:"NATS_URL"`
	AuditSubject string `env:"AUDIT_SUBJECT,default=contentauth.audit"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	CookieSecure bool   `env:"COOKIE_SECURE,default=false"`
}

// Load reads an optional .env file (missing files are ignored) and then
// the process environment. Variables already set win over the file.
func Load(ctx context.Context, envFiles ...string) (Config, error) {
	_ = godotenv.Load(envFiles...)
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Engine maps the environment onto an engine configuration. Key material
// is required here even though other subcommands can run without it.
func (c Config) Engine() (contentauth.Config, error) {
	if c.AccessTokenPrivateKey == "" || c.AccessTokenPublicKey == "" {
		return contentauth.Config{}, errors.New("ACCESS_TOKEN_PRIVATE_KEY and ACCESS_TOKEN_PUBLIC_KEY are required")
	}
	if c.AccessTokenMaxAge <= 0 {
		return contentauth.Config{}, errors.New("ACCESS_TOKEN_MAXAGE must be a positive number of minutes")
	}

	cfg := contentauth.DefaultConfig()
	cfg.Token.PrivateKey = []byte(c.AccessTokenPrivateKey)
	cfg.Token.PublicKey = []byte(c.AccessTokenPublicKey)
	cfg.Token.TTL = time.Duration(c.AccessTokenMaxAge) * time.Minute
	cfg.Token.Issuer = c.TokenIssuer
	cfg.Session.RedisPrefix = c.SessionKeyPrefix
	cfg.Session.OpTimeout = c.SessionOpTimeout
	cfg.Password.Workers = c.HashWorkers
	cfg.Audit.Enabled = c.NATSURL != ""

	if err := cfg.Validate(); err != nil {
		return contentauth.Config{}, err
	}
	return cfg, nil
}
