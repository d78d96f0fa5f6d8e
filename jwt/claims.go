package jwt

import "time"

// TokenDetails describes an issued or verified access token.
type TokenDetails struct {
	Token     string
	TokenID   string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// wireClaims is the exact claim set carried in the token payload. Decoding
// rejects unknown members, and pointer fields make absent members visible.
type wireClaims struct {
	Subject   *string `json:"sub"`
	ID        *string `json:"jti"`
	IssuedAt  *int64  `json:"iat"`
	ExpiresAt *int64  `json:"exp"`
	Issuer    *string `json:"iss,omitempty"`
}
