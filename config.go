package contentauth

import (
	"errors"
	"time"
)

// Config is the immutable engine configuration. Build clones it, so later
// changes by the caller have no effect on a running Engine.
type Config struct {
	Token    TokenConfig
	Session  SessionConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig holds access-token key material and lifetime. Keys are PEM or
// base64-wrapped PEM; RSA keys sign with RS256 and Ed25519 keys with EdDSA.
type TokenConfig struct {
	TTL          time.Duration
	PrivateKey   []byte
	PublicKey    []byte
	Issuer       string
	KeyID        string
	MaxFutureIAT time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis session store.
type SessionConfig struct {
	RedisPrefix string
	OpTimeout   time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters and the hashing concurrency limit.
type PasswordConfig struct {
	Memory         uint32 // in KiB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	Workers        int
	UpgradeOnLogin bool
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns defaults for everything except key material.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:          60 * time.Minute,
			MaxFutureIAT: time.Minute,
		},
		Session: SessionConfig{
			RedisPrefix: "cs",
			OpTimeout:   500 * time.Millisecond,
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks structural constraints. Key parsing happens in Build.
func (c *Config) Validate() error {
	// Token
	if c.Token.TTL < time.Second {
		return errors.New("Token TTL must be >= 1s")
	}
	if len(c.Token.PrivateKey) == 0 {
		return errors.New("Token PrivateKey is required")
	}
	if len(c.Token.PublicKey) == 0 {
		return errors.New("Token PublicKey is required")
	}
	if c.Token.MaxFutureIAT < 0 {
		return errors.New("Token MaxFutureIAT must be >= 0")
	}

	// Session
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.OpTimeout <= 0 {
		return errors.New("Session OpTimeout must be > 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KiB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.Workers < 0 {
		return errors.New("Password Workers must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
