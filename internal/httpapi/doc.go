// Package httpapi serves the user authentication endpoints of the content
// backend over chi.
//
// Routes live under /api/user with trailing slashes stripped:
//
//	POST /api/user/login                 credentials in, token + profile out
//	POST /api/user/logout                clears the token cookie
//	POST /api/user/update_pwd/{username} requires the `token` header
//	GET  /api/user/me                    echoes the authenticated identity
//
// plus /healthz, /readyz and, when configured, /metrics. Handlers translate
// engine errors with middleware.WriteError; causes are logged, never sent.
package httpapi
