package middleware

import (
	"net"
	"net/http"

	"github.com/MrEthical07/contentauth"
)

// ClientIP stores the remote host of r in the request context. Run it after
// any proxy header rewriting so RemoteAddr is already the client address.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		next.ServeHTTP(w, r.WithContext(contentauth.WithClientIP(r.Context(), host)))
	})
}
