package contentauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/contentauth/internal/audit"
	"github.com/MrEthical07/contentauth/jwt"
	"github.com/MrEthical07/contentauth/password"
	"github.com/MrEthical07/contentauth/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an Engine. A Builder may be used for one Build only.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userStore UserStore
	auditSink AuditSink
	logger    zerolog.Logger
	now       func() time.Time

	built bool
}

func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
		now:    time.Now,
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the session backend. Single-node, sentinel and cluster
// clients are all accepted.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.userStore = store
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.logger = log
	return b
}

// WithClock replaces time.Now for token timestamps, expiry checks and session
// records.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now != nil {
		b.now = now
	}
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, parses key material once and wires the
// flows.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userStore == nil {
		return nil, errors.New("user store required")
	}

	// -------- TOKENS --------
	issuer, err := jwt.NewIssuer(jwt.IssuerConfig{
		PrivateKey: cloneBytes(cfg.Token.PrivateKey),
		Issuer:     cfg.Token.Issuer,
		KeyID:      cfg.Token.KeyID,
		Now:        b.now,
	})
	if err != nil {
		return nil, err
	}
	verifier, err := jwt.NewVerifier(jwt.VerifierConfig{
		PublicKey:    cloneBytes(cfg.Token.PublicKey),
		Issuer:       cfg.Token.Issuer,
		MaxFutureIAT: cfg.Token.MaxFutureIAT,
		Now:          b.now,
	})
	if err != nil {
		return nil, err
	}
	if err := checkKeyPair(issuer, verifier); err != nil {
		return nil, err
	}

	// -------- PASSWORDS --------
	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	pool, err := password.NewPool(hasher, cfg.Password.Workers)
	if err != nil {
		return nil, err
	}

	// -------- SESSIONS --------
	store := session.NewStore(b.redis, session.Config{
		Prefix:    cfg.Session.RedisPrefix,
		OpTimeout: cfg.Session.OpTimeout,
		Now:       b.now,
	})

	engine := &Engine{
		config:    cfg,
		issuer:    issuer,
		verifier:  verifier,
		sessions:  store,
		passwords: pool,
		users:     b.userStore,
		metrics:   NewMetrics(cfg.Metrics),
		log:       b.logger.With().Str("component", "contentauth").Logger(),
		now:       b.now,
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.flows = engine.buildFlows()

	b.built = true

	return engine, nil
}

// checkKeyPair signs a throwaway token and verifies it, so a mismatched pair
// fails at startup instead of on every request.
func checkKeyPair(issuer *jwt.Issuer, verifier *jwt.Verifier) error {
	probe, err := issuer.Generate("key-pair-check", time.Minute)
	if err != nil {
		return err
	}
	if _, err := verifier.Verify(probe.Token); err != nil {
		return fmt.Errorf("Token PublicKey does not match PrivateKey: %w", err)
	}
	return nil
}
