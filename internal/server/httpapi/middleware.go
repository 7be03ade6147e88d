package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/farmgate/internal/server/gate"
)

// sessionMiddleware attaches the caller's session, if any, to the request
// context. It never rejects a request.
func (s *HTTPServer) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess := s.auth.ResolveSession(r.Context(), gate.FromHTTP(r)); sess != nil {
			r = r.WithContext(gate.WithSession(r.Context(), sess))
		}
		next.ServeHTTP(w, r)
	})
}
