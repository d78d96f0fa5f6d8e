package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/contentauth/jwt"
)

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	Login          LoginDeps
	Authenticate   AuthenticateDeps
	Logout         LogoutDeps
	ChangePassword ChangePasswordDeps
	Revoke         RevokeDeps
}

// UserRecord is the flow-local view of a stored account.
type UserRecord struct {
	UserID       string
	Username     string
	Nickname     string
	Avatar       string
	PasswordHash string
	Deleted      bool
}

// Shared function shapes. A nil *UserRecord with a nil error means the user
// does not exist.
type (
	GetUserFunc        func(ctx context.Context, username string) (*UserRecord, error)
	VerifyTokenFunc    func(token string) (*jwt.TokenDetails, error)
	VerifyPasswordFunc func(ctx context.Context, password, encodedHash string) (bool, error)
	HashPasswordFunc   func(ctx context.Context, password string) (string, error)
	UpdateHashFunc     func(ctx context.Context, userID, encodedHash string) error
	EmitAuditFunc      func(ctx context.Context, event string, success bool, userID, username, tokenID string, err error, metadata func() map[string]string)
	IssueTokenFunc     func(userID string, ttl time.Duration) (*jwt.TokenDetails, error)
	PutSessionFunc     func(ctx context.Context, tokenID, userID string, ttl time.Duration) error
	GetSessionFunc     func(ctx context.Context, tokenID string) (string, bool, error)
	RemoveSessionFunc  func(ctx context.Context, tokenID string) error
)
