package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Authenticate.VerifyToken != nil && s.deps.Authenticate.GetSession != nil
}

func (s Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	return RunLogin(ctx, username, password, s.deps.Login)
}

func (s Service) Authenticate(ctx context.Context, token string) AuthenticateResult {
	return RunAuthenticate(ctx, token, s.deps.Authenticate)
}

func (s Service) Logout(ctx context.Context, token string) LogoutResult {
	return RunLogout(ctx, token, s.deps.Logout)
}

func (s Service) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	return RunChangePassword(ctx, username, oldPassword, newPassword, s.deps.ChangePassword)
}

func (s Service) Revoke(ctx context.Context, token string) RevokeResult {
	return RunRevoke(ctx, token, s.deps.Revoke)
}

func (s Service) RevokeAll(ctx context.Context, userID string) (int, error) {
	return RunRevokeAll(ctx, userID, s.deps.Revoke)
}
