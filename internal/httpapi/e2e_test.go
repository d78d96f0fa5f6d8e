package httpapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/contentauth"
	"github.com/MrEthical07/contentauth/internal/userstore/memory"
	"github.com/MrEthical07/contentauth/jwt"
	"github.com/MrEthical07/contentauth/password"
)

type stack struct {
	handler http.Handler
	engine  *contentauth.Engine
	mr      *miniredis.Miniredis
}

func newStack(t *testing.T, ttl time.Duration) *stack {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	kp, err := jwt.GenerateKeyPair(jwt.KeyRSA)
	require.NoError(t, err)

	cfg := contentauth.DefaultConfig()
	cfg.Token.PrivateKey = kp.PrivatePEM
	cfg.Token.PublicKey = kp.PublicPEM
	cfg.Token.TTL = ttl
	cfg.Session.OpTimeout = 200 * time.Millisecond
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	hasher, err := password.NewArgon2(password.Config{
		Memory: cfg.Password.Memory, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	require.NoError(t, err)
	hash, err := hasher.Hash("correct-password-123")
	require.NoError(t, err)

	users := memory.New()
	for _, u := range []*contentauth.User{
		{ID: "u-alice", Username: "alice", Nickname: "Alice", Avatar: "/a.png", PasswordHash: hash},
		{ID: "u-bob", Username: "bob", Nickname: "Bob", PasswordHash: hash},
	} {
		require.NoError(t, users.Create(context.Background(), u))
	}

	engine, err := contentauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(users).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	api, err := New(Options{Service: engine, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return &stack{handler: api.Routes(), engine: engine, mr: mr}
}

func (s *stack) login(t *testing.T, username, pw string) string {
	t.Helper()
	rec := do(t, s.handler, http.MethodPost, "/api/user/login", `{"username":"`+username+`","password":"`+pw+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok, _ := decode(t, rec)["access_token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func TestEndToEndLoginAndProtectedCall(t *testing.T) {
	s := newStack(t, 15*time.Minute)
	tok := s.login(t, "alice", "correct-password-123")

	rec := do(t, s.handler, http.MethodGet, "/api/user/me", "", map[string]string{"token": tok})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-alice", decode(t, rec)["user_id"])
}

func TestEndToEndWrongPasswordTwiceCreatesNoSession(t *testing.T) {
	s := newStack(t, 15*time.Minute)

	for i := 0; i < 2; i++ {
		rec := do(t, s.handler, http.MethodPost, "/api/user/login", `{"username":"alice","password":"nope"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid password", decode(t, rec)["message"])
	}
	rec := do(t, s.handler, http.MethodPost, "/api/user/login", `{"username":"ghost","password":"nope"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid password", decode(t, rec)["message"])

	assert.Empty(t, s.mr.Keys())
}

func TestEndToEndLogoutKeepsTokenUsable(t *testing.T) {
	s := newStack(t, 15*time.Minute)
	tok := s.login(t, "alice", "correct-password-123")

	rec := do(t, s.handler, http.MethodPost, "/api/user/logout", "", map[string]string{"token": tok})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s.handler, http.MethodGet, "/api/user/me", "", map[string]string{"token": tok})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEndToEndUpdatePassword(t *testing.T) {
	s := newStack(t, 15*time.Minute)
	aliceTok := s.login(t, "alice", "correct-password-123")
	bobTok := s.login(t, "bob", "correct-password-123")

	body := `{"old_password":"correct-password-123","new_password":"another-password-456"}`

	rec := do(t, s.handler, http.MethodPost, "/api/user/update_pwd/alice", body, map[string]string{"token": bobTok})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, s.handler, http.MethodPost, "/api/user/update_pwd/alice", `{"old_password":"wrong","new_password":"x"}`, map[string]string{"token": aliceTok})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s.handler, http.MethodPost, "/api/user/update_pwd/alice", body, map[string]string{"token": aliceTok})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	// Existing tokens survive the change.
	rec = do(t, s.handler, http.MethodGet, "/api/user/me", "", map[string]string{"token": aliceTok})
	assert.Equal(t, http.StatusOK, rec.Code)

	s.login(t, "alice", "another-password-456")
}

func TestEndToEndRevokedSessionIsRejected(t *testing.T) {
	s := newStack(t, 15*time.Minute)
	tok := s.login(t, "alice", "correct-password-123")

	require.NoError(t, s.engine.Revoke(context.Background(), tok))

	rec := do(t, s.handler, http.MethodGet, "/api/user/me", "", map[string]string{"token": tok})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token is invalid or session has expired", decode(t, rec)["message"])
}

func TestEndToEndRedisDownIs503(t *testing.T) {
	s := newStack(t, 15*time.Minute)
	tok := s.login(t, "alice", "correct-password-123")

	s.mr.Close()

	rec := do(t, s.handler, http.MethodGet, "/api/user/me", "", map[string]string{"token": tok})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, s.handler, http.MethodPost, "/api/user/login", `{"username":"alice","password":"correct-password-123"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	assert.Equal(t, http.StatusServiceUnavailable, do(t, s.handler, http.MethodGet, "/readyz", "", nil).Code)
}
