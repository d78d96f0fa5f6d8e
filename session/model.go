package session

// Record is the server-side half of an access token. Its presence under the
// token's jti is what makes a signature-valid token usable. Times are Unix
// milliseconds.
type Record struct {
	TokenID   string
	UserID    string
	IssuedAt  int64
	ExpiresAt int64
}
