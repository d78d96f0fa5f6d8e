//go:build integration
// +build integration

package test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/contentauth"
	"github.com/MrEthical07/contentauth/internal/userstore/memory"
	"github.com/MrEthical07/contentauth/jwt"
	"github.com/MrEthical07/contentauth/password"
	"github.com/MrEthical07/contentauth/session"
)

const alicePassword = "correct-horse-battery"

// cmdCounter counts Redis round-trips. A pipeline is one round-trip.
type cmdCounter struct {
	commands  atomic.Int64
	roundTrip atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		h.roundTrip.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.roundTrip.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.roundTrip.Store(0)
}

func (h *cmdCounter) RoundTrips() int64 { return h.roundTrip.Load() }

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client, *cmdCounter) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	// Connection setup commands are not part of any budget.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter := &cmdCounter{}
	rdb.AddHook(counter)
	return mr, rdb, counter
}

func newStore(t *testing.T) (*session.Store, *miniredis.Miniredis, *cmdCounter) {
	t.Helper()
	mr, rdb, counter := newRedis(t)
	return session.NewStore(rdb, session.Config{Prefix: "cs", OpTimeout: time.Second}), mr, counter
}

type engineEnv struct {
	engine *contentauth.Engine
	users  *memory.Store
	mr     *miniredis.Miniredis
	redis  *cmdCounter
}

func newEngine(t *testing.T) *engineEnv {
	t.Helper()

	mr, rdb, counter := newRedis(t)

	kp, err := jwt.GenerateKeyPair(jwt.KeyEd25519)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	cfg := contentauth.DefaultConfig()
	cfg.Token.PrivateKey = kp.PrivatePEM
	cfg.Token.PublicKey = kp.PublicPEM
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.Workers = 4

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	hash, err := hasher.Hash(alicePassword)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	users := memory.New()
	if err := users.Create(context.Background(), &contentauth.User{
		ID:           "u-alice",
		Username:     "alice",
		Nickname:     "Alice",
		PasswordHash: hash,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	engine, err := contentauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(users).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &engineEnv{engine: engine, users: users, mr: mr, redis: counter}
}
