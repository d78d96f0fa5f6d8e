package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// IssuerConfig configures an Issuer. PrivateKey is PEM, or base64-wrapped
// PEM, holding an RSA or Ed25519 private key.
type IssuerConfig struct {
	PrivateKey []byte
	Issuer     string
	KeyID      string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Issuer signs access tokens. The parsed key is held in memory only and never
// returned, logged or formatted.
type Issuer struct {
	key    any
	method jwt.SigningMethod
	iss    string
	kid    string
	now    func() time.Time
}

// NewIssuer parses cfg.PrivateKey once. An unparseable or unsupported key
// yields ErrKey.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	key, method, err := parseSigningKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Issuer{
		key:    key,
		method: method,
		iss:    strings.TrimSpace(cfg.Issuer),
		kid:    strings.TrimSpace(cfg.KeyID),
		now:    cfg.Now,
	}, nil
}

// Algorithm reports the JWS alg this issuer signs with.
func (i *Issuer) Algorithm() string {
	return i.method.Alg()
}

// Generate signs a token for userID valid for ttl. The token identifier is a
// random UUIDv4 and doubles as the session key.
func (i *Issuer) Generate(userID string, ttl time.Duration) (*TokenDetails, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrSigning)
	}
	if ttl < time.Second {
		return nil, fmt.Errorf("%w: ttl must be at least one second", ErrSigning)
	}

	jti, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}

	// NumericDate claims carry whole seconds. exp is rounded up so the token
	// lives at least ttl from now.
	now := i.now()
	issuedAt := now.Truncate(time.Second)
	expiresAt := now.Add(ttl)
	if whole := expiresAt.Truncate(time.Second); !whole.Equal(expiresAt) {
		expiresAt = whole.Add(time.Second)
	}

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        jti.String(),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		Issuer:    i.iss,
	}

	token := jwt.NewWithClaims(i.method, claims)
	if i.kid != "" {
		token.Header["kid"] = i.kid
	}

	signed, err := token.SignedString(i.key)
	if err != nil {
		return nil, errors.Join(ErrSigning, err)
	}

	return &TokenDetails{
		Token:     signed,
		TokenID:   claims.ID,
		UserID:    userID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
