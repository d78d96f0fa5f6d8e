package contentauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/contentauth/jwt"
	"github.com/MrEthical07/contentauth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPassword = "correct-password-123"

type mockUserStore struct {
	mu    sync.Mutex
	users map[string]*User // by username

	getErr    error
	updateErr error

	getCalls    int
	updateCalls int
}

func newMockUserStore(users ...*User) *mockUserStore {
	m := &mockUserStore{users: make(map[string]*User, len(users))}
	for _, u := range users {
		m.users[u.Username] = u
	}
	return m
}

func (m *mockUserStore) GetByUsername(_ context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserStore) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	for _, u := range m.users {
		if u.ID == userID {
			u.PasswordHash = hash
			return nil
		}
	}
	return ErrUserNotFound
}

func (m *mockUserStore) hashOf(username string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[username].PasswordHash
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_750_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testPasswordConfig() password.Config {
	return password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t testing.TB) *password.Argon2 {
	t.Helper()
	h, err := password.NewArgon2(testPasswordConfig())
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func newTestKeys(t testing.TB) jwt.KeyPair {
	t.Helper()
	kp, err := jwt.GenerateKeyPair(jwt.KeyEd25519)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return kp
}

func testConfig(t testing.TB) Config {
	t.Helper()
	kp := newTestKeys(t)

	pc := testPasswordConfig()
	cfg := DefaultConfig()
	cfg.Token.PrivateKey = kp.PrivatePEM
	cfg.Token.PublicKey = kp.PublicPEM
	cfg.Token.TTL = 15 * time.Minute
	cfg.Password.Memory = pc.Memory
	cfg.Password.Time = pc.Time
	cfg.Password.Parallelism = pc.Parallelism
	cfg.Password.SaltLength = pc.SaltLength
	cfg.Password.KeyLength = pc.KeyLength
	cfg.Password.Workers = 4
	return cfg
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newAlice(t testing.TB) *User {
	t.Helper()
	hash, err := newTestHasher(t).Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &User{
		ID:           "u-alice",
		Username:     "alice",
		Nickname:     "Alice",
		Avatar:       "/static/avatars/alice.png",
		PasswordHash: hash,
		Email:        "alice@example.com",
	}
}

type engineFixture struct {
	engine *Engine
	users  *mockUserStore
	mr     *miniredis.Miniredis
	clock  *testClock
}

type fixtureOption func(*Config, *Builder)

func withAuditSink(sink AuditSink) fixtureOption {
	return func(cfg *Config, b *Builder) {
		cfg.Audit.Enabled = true
		b.WithAuditSink(sink)
	}
}

func withConfig(mutate func(*Config)) fixtureOption {
	return func(cfg *Config, _ *Builder) { mutate(cfg) }
}

func newFixture(t testing.TB, opts ...fixtureOption) *engineFixture {
	t.Helper()

	mr, rdb := newTestRedis(t)
	users := newMockUserStore(newAlice(t))
	clock := newTestClock()

	cfg := testConfig(t)
	b := New().WithRedis(rdb).WithUserStore(users).WithClock(clock.Now)
	for _, opt := range opts {
		opt(&cfg, b)
	}

	engine, err := b.WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &engineFixture{engine: engine, users: users, mr: mr, clock: clock}
}

// sessionKeys lists Redis keys holding session records, not user indexes.
func (f *engineFixture) sessionKeys() []string {
	var out []string
	for _, k := range f.mr.Keys() {
		if !strings.Contains(k, ":u:") {
			out = append(out, k)
		}
	}
	return out
}

func TestLoginReturnsTokenAndProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.Login(ctx, "alice", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.AccessToken == "" || res.TokenID == "" {
		t.Fatalf("expected token and token id, got %+v", res)
	}
	if res.Profile != (Profile{Nickname: "Alice", Avatar: "/static/avatars/alice.png"}) {
		t.Fatalf("unexpected profile %+v", res.Profile)
	}
	if want := f.clock.Now().Add(15 * time.Minute); !res.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, res.ExpiresAt)
	}

	details, err := f.engine.verifier.Verify(res.AccessToken)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	userID, found, err := f.engine.sessions.Get(ctx, details.TokenID)
	if err != nil || !found {
		t.Fatalf("session lookup: found=%v err=%v", found, err)
	}
	if userID != details.UserID || userID != "u-alice" {
		t.Fatalf("session user %q does not match subject %q", userID, details.UserID)
	}

	if got := f.engine.metrics.Value(MetricLoginSuccess); got != 1 {
		t.Fatalf("expected one login success, got %d", got)
	}
	if got := f.engine.metrics.Value(MetricSessionCreated); got != 1 {
		t.Fatalf("expected one session created, got %d", got)
	}
}

func TestLoginUnknownUserMatchesWrongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, errWrong := f.engine.Login(ctx, "alice", "nope")
	_, errUnknown := f.engine.Login(ctx, "mallory", testPassword)

	if !errors.Is(errWrong, ErrInvalidCredentials) || !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", errWrong, errUnknown)
	}
	if PublicMessage(errWrong) != PublicMessage(errUnknown) {
		t.Fatalf("public messages differ: %q vs %q", PublicMessage(errWrong), PublicMessage(errUnknown))
	}
	if PublicMessage(errUnknown) != "Invalid password" {
		t.Fatalf("unexpected public message %q", PublicMessage(errUnknown))
	}
}

func TestLoginDeletedUserRejected(t *testing.T) {
	f := newFixture(t)
	f.users.users["alice"].IsDeleted = true

	_, err := f.engine.Login(context.Background(), "alice", testPassword)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(f.sessionKeys()) != 0 {
		t.Fatalf("expected no sessions, got %v", f.sessionKeys())
	}
}

func TestLoginMalformedStoredHashIsInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	f.users.users["alice"].PasswordHash = testPassword // plaintext never matches

	_, err := f.engine.Login(context.Background(), "alice", testPassword)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUserStoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.users.getErr = errors.New("connection reset by peer")

	_, err := f.engine.Login(context.Background(), "alice", testPassword)
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("backend failure must not look like bad credentials")
	}
	if msg := PublicMessage(err); msg != "Internal server error" || strings.Contains(msg, "reset") {
		t.Fatalf("unexpected public message %q", msg)
	}
}

func TestLoginSessionStoreDown(t *testing.T) {
	f := newFixture(t, withConfig(func(c *Config) { c.Session.OpTimeout = 100 * time.Millisecond }))
	f.mr.Close()

	_, err := f.engine.Login(context.Background(), "alice", testPassword)
	if !errors.Is(err, ErrSessionStoreUnavailable) {
		t.Fatalf("expected ErrSessionStoreUnavailable, got %v", err)
	}
	if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrUnauthorized) {
		t.Fatalf("outage reported as auth failure: %v", err)
	}
	if got := f.engine.metrics.Value(MetricSessionStoreUnavailable); got != 1 {
		t.Fatalf("expected unavailable metric 1, got %d", got)
	}
}

func TestLoginUpgradesWeakHash(t *testing.T) {
	f := newFixture(t, withConfig(func(c *Config) { c.Password.Time = 2 }))
	before := f.users.hashOf("alice")

	if _, err := f.engine.Login(context.Background(), "alice", testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}

	after := f.users.hashOf("alice")
	if after == before {
		t.Fatal("expected hash to be upgraded")
	}
	if !strings.Contains(after, ",t=2,") {
		t.Fatalf("expected t=2 in upgraded hash, got %s", after)
	}
	if got := f.engine.metrics.Value(MetricPasswordRehashed); got != 1 {
		t.Fatalf("expected rehash metric 1, got %d", got)
	}

	// The upgraded hash still verifies.
	if _, err := f.engine.Login(context.Background(), "alice", testPassword); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if f.users.updateCalls != 1 {
		t.Fatalf("expected a single rehash, got %d updates", f.users.updateCalls)
	}
}

func TestLoginWithoutUpgradeKeepsHash(t *testing.T) {
	f := newFixture(t, withConfig(func(c *Config) {
		c.Password.Time = 2
		c.Password.UpgradeOnLogin = false
	}))

	if _, err := f.engine.Login(context.Background(), "alice", testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if f.users.updateCalls != 0 {
		t.Fatalf("expected no hash update, got %d", f.users.updateCalls)
	}
}

func TestConcurrentLoginsProduceIndependentSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 8
	results := make([]*LoginResult, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.engine.Login(ctx, "alice", testPassword)
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("login %d: %v", i, errs[i])
		}
		if seen[results[i].TokenID] {
			t.Fatalf("duplicate token id %s", results[i].TokenID)
		}
		seen[results[i].TokenID] = true

		if _, err := f.engine.Authenticate(ctx, results[i].AccessToken); err != nil {
			t.Fatalf("authenticate %d: %v", i, err)
		}
	}
	if len(f.sessionKeys()) != n {
		t.Fatalf("expected %d session keys, got %d", n, len(f.sessionKeys()))
	}
}

func TestZeroEngineNotReady(t *testing.T) {
	var e Engine
	if _, err := e.Login(context.Background(), "a", "b"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.Authenticate(context.Background(), "x.y.z"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if err := e.Logout(context.Background(), ""); err != nil {
		t.Fatalf("Logout on zero engine: %v", err)
	}
}
