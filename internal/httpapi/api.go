package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/contentauth"
	"github.com/MrEthical07/contentauth/middleware"
)

const (
	tokenCookie     = "token"
	maxBodyBytes    = 64 << 10
	defaultDeadline = 30 * time.Second
)

// Service is the engine surface the handlers call.
type Service interface {
	Login(ctx context.Context, username, password string) (*contentauth.LoginResult, error)
	Logout(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error
	Authenticate(ctx context.Context, token string) (*contentauth.Identity, error)
	Ping(ctx context.Context) error
}

// Options configures the API.
type Options struct {
	Service Service
	Logger  zerolog.Logger
	// CookieSecure marks the token cookie Secure; enable behind TLS.
	CookieSecure bool
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
	// ReadyChecks run after the session store ping on /readyz.
	ReadyChecks []func(context.Context) error
	// RequestTimeout bounds each request; zero means 30s.
	RequestTimeout time.Duration
	// Now is used for cookie expiry; nil means time.Now.
	Now func() time.Time
}

// API wires the service into HTTP handlers.
type API struct {
	svc     Service
	log     zerolog.Logger
	opts    Options
	now     func() time.Time
	timeout time.Duration
}

// New validates opts and applies defaults.
func New(opts Options) (*API, error) {
	if opts.Service == nil {
		return nil, errors.New("httpapi: service is required")
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultDeadline
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &API{
		svc:     opts.Service,
		log:     opts.Logger.With().Str("component", "httpapi").Logger(),
		opts:    opts,
		now:     now,
		timeout: timeout,
	}, nil
}

// Routes builds the router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.ClientIP)
	r.Use(a.logRequests)
	r.Use(chimw.Recoverer)
	r.Use(chimw.StripSlashes)
	r.Use(chimw.Timeout(a.timeout))

	r.Get("/healthz", a.handleHealth)
	r.Get("/readyz", a.handleReady)
	if a.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.opts.Metrics)
	}

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/login", a.handleLogin)
		r.Post("/logout", a.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireToken(a.svc))
			r.Post("/update_pwd/{username}", a.handleUpdatePassword)
			r.Get("/me", a.handleMe)
		})
	})

	return r
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		ev := a.log.Info()
		if status >= http.StatusInternalServerError {
			ev = a.log.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("request_id", chimw.GetReqID(r.Context())).
			Msg("request")
	})
}
