package password

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// dummyPassword is hashed once per Pool so VerifyDummy costs the same as a
// real verification under the current parameters.
const dummyPassword = "contentauth-dummy-password"

// Pool bounds the number of Argon2 computations running at once. Each
// computation holds Memory KiB for its duration, so unbounded fan-out under
// load would exhaust the host.
type Pool struct {
	hasher *Argon2
	sem    *semaphore.Weighted
	dummy  string
}

// NewPool wraps hasher with a limit of workers concurrent computations.
// workers <= 0 selects GOMAXPROCS.
func NewPool(hasher *Argon2, workers int) (*Pool, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	return &Pool{
		hasher: hasher,
		sem:    semaphore.NewWeighted(int64(workers)),
		dummy:  dummy,
	}, nil
}

// Hash waits for a slot and hashes password. It returns ctx.Err() if the
// context ends before a slot frees up.
func (p *Pool) Hash(ctx context.Context, password string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.sem.Release(1)

	return p.hasher.Hash(password)
}

// Verify waits for a slot and verifies password against encodedHash.
func (p *Pool) Verify(ctx context.Context, password, encodedHash string) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer p.sem.Release(1)

	return p.hasher.Verify(password, encodedHash)
}

// VerifyDummy runs a verification whose result is discarded. Callers use it
// when no stored hash exists so that response timing does not reveal whether
// an account exists.
func (p *Pool) VerifyDummy(ctx context.Context, password string) {
	_, _ = p.Verify(ctx, password, p.dummy)
}

// NeedsUpgrade delegates to the wrapped hasher; it does no key derivation.
func (p *Pool) NeedsUpgrade(encodedHash string) (bool, error) {
	return p.hasher.NeedsUpgrade(encodedHash)
}
