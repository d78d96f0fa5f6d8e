package jwt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultMaxFutureIAT = time.Minute

// VerifierConfig configures a Verifier. PublicKey is PEM, or base64-wrapped
// PEM, holding an RSA or Ed25519 public key. When Issuer is set the iss claim
// must match it exactly.
type VerifierConfig struct {
	PublicKey    []byte
	Issuer       string
	MaxFutureIAT time.Duration
	Now          func() time.Time
}

// Verifier checks token signatures and claims. It holds no mutable state and
// is safe for concurrent use.
type Verifier struct {
	key          any
	method       jwt.SigningMethod
	iss          string
	maxFutureIAT time.Duration
	parser       *jwt.Parser
	now          func() time.Time
}

// NewVerifier parses cfg.PublicKey once.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	key, method, err := parseVerifyKey(cfg.PublicKey)
	if err != nil {
		return nil, err
	}
	if cfg.MaxFutureIAT < 0 {
		return nil, fmt.Errorf("%w: negative MaxFutureIAT", ErrKey)
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = defaultMaxFutureIAT
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Verifier{
		key:          key,
		method:       method,
		iss:          strings.TrimSpace(cfg.Issuer),
		maxFutureIAT: cfg.MaxFutureIAT,
		// Time-based claims are checked below against our own clock.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
		now: cfg.Now,
	}, nil
}

// Verify checks the signature, decodes the claim set strictly and rejects
// the token once the current time reaches exp. Errors wrap exactly one of
// ErrMalformed, ErrInvalidSignature or ErrExpired.
func (v *Verifier) Verify(token string) (*TokenDetails, error) {
	if strings.Count(token, ".") != 2 {
		return nil, fmt.Errorf("%w: expected three segments", ErrMalformed)
	}

	_, err := v.parser.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims, err := v.decodeClaims(token[strings.IndexByte(token, '.')+1 : strings.LastIndexByte(token, '.')])
	if err != nil {
		return nil, err
	}

	details := &TokenDetails{
		Token:     token,
		TokenID:   *claims.ID,
		UserID:    *claims.Subject,
		IssuedAt:  time.Unix(*claims.IssuedAt, 0),
		ExpiresAt: time.Unix(*claims.ExpiresAt, 0),
	}

	now := v.now()
	if details.IssuedAt.After(now.Add(v.maxFutureIAT)) {
		return nil, fmt.Errorf("%w: iat in the future", ErrMalformed)
	}
	if !now.Before(details.ExpiresAt) {
		return nil, ErrExpired
	}

	return details, nil
}

func (v *Verifier) decodeClaims(segment string) (*wireClaims, error) {
	payload, err := v.parser.DecodeSegment(segment)
	if err != nil {
		return nil, fmt.Errorf("%w: payload encoding", ErrMalformed)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	var claims wireClaims
	if err := dec.Decode(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after claims", ErrMalformed)
	}

	switch {
	case claims.Subject == nil || *claims.Subject == "":
		return nil, fmt.Errorf("%w: missing sub", ErrMalformed)
	case claims.ID == nil:
		return nil, fmt.Errorf("%w: missing jti", ErrMalformed)
	case claims.IssuedAt == nil:
		return nil, fmt.Errorf("%w: missing iat", ErrMalformed)
	case claims.ExpiresAt == nil:
		return nil, fmt.Errorf("%w: missing exp", ErrMalformed)
	case *claims.ExpiresAt <= *claims.IssuedAt:
		return nil, fmt.Errorf("%w: exp not after iat", ErrMalformed)
	}

	if _, err := uuid.Parse(*claims.ID); err != nil {
		return nil, fmt.Errorf("%w: jti is not a uuid", ErrMalformed)
	}

	if v.iss != "" && (claims.Issuer == nil || *claims.Issuer != v.iss) {
		return nil, fmt.Errorf("%w: unexpected iss", ErrMalformed)
	}

	return &claims, nil
}
