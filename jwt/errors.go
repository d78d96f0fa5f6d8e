package jwt

import "errors"

var (
	// ErrKey indicates unusable key material.
	ErrKey = errors.New("jwt: invalid key")
	// ErrSigning indicates the signer failed to produce a token.
	ErrSigning = errors.New("jwt: signing failed")
	// ErrMalformed covers undecodable tokens and claim sets that do not match
	// the expected shape.
	ErrMalformed = errors.New("jwt: malformed token")
	// ErrInvalidSignature indicates the token was not signed by the
	// configured key or used an unexpected algorithm.
	ErrInvalidSignature = errors.New("jwt: invalid signature")
	// ErrExpired indicates the current time is at or after the exp claim.
	ErrExpired = errors.New("jwt: token expired")
)
