//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
	"time"
)

// Lua scripts are loaded on first use, which costs an extra EVAL. Budgets are
// measured once the scripts are cached.
func warmScripts(t *testing.T, put func(string) error, remove func(string) error) {
	t.Helper()
	if err := put("warm"); err != nil {
		t.Fatalf("warm put: %v", err)
	}
	if err := remove("warm"); err != nil {
		t.Fatalf("warm remove: %v", err)
	}
}

func TestSessionStoreRedisBudget(t *testing.T) {
	store, _, counter := newStore(t)
	ctx := context.Background()

	put := func(id string) error { return store.Put(ctx, id, "u-1", time.Hour) }
	remove := func(id string) error { return store.Remove(ctx, id) }
	warmScripts(t, put, remove)

	tests := []struct {
		name   string
		op     func() error
		budget int64
	}{
		{name: "put", op: func() error { return put("tok-1") }, budget: 1},
		{name: "get", op: func() error { _, _, err := store.Get(ctx, "tok-1"); return err }, budget: 1},
		{name: "get missing", op: func() error { _, _, err := store.Get(ctx, "nope"); return err }, budget: 1},
		{name: "remove", op: func() error { return remove("tok-1") }, budget: 2},
		{name: "remove missing", op: func() error { return remove("tok-1") }, budget: 1},
		{name: "remove user", op: func() error {
			_, err := store.RemoveUser(ctx, "u-1")
			return err
		}, budget: 2},
	}
	for _, tc := range tests {
		counter.Reset()
		if err := tc.op(); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got := counter.RoundTrips(); got > tc.budget {
			t.Fatalf("%s: expected at most %d round-trips, got %d", tc.name, tc.budget, got)
		}
	}
}

// Authenticate is on every request path and must cost a single GET.
func TestAuthenticateRedisBudget(t *testing.T) {
	env := newEngine(t)
	ctx := context.Background()

	res, err := env.engine.Login(ctx, "alice", alicePassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	env.redis.Reset()
	if _, err := env.engine.Authenticate(ctx, res.AccessToken); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got := env.redis.RoundTrips(); got != 1 {
		t.Fatalf("expected 1 round-trip, got %d", got)
	}
}

func TestRejectedTokenCostsNoRedis(t *testing.T) {
	env := newEngine(t)

	env.redis.Reset()
	_, _ = env.engine.Authenticate(context.Background(), "not-a-token")
	if got := env.redis.RoundTrips(); got != 0 {
		t.Fatalf("expected no round-trips for a malformed token, got %d", got)
	}
}
