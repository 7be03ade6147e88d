// Package gate resolves the session behind an incoming request. It never
// fails: any problem with the token yields an anonymous request.
package gate

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/farmgate/internal/common"
	"github.com/dmitrijs2005/farmgate/internal/logging"
	"github.com/dmitrijs2005/farmgate/internal/server/models"
)

type Validator interface {
	Validate(ctx context.Context, token string) (*models.SessionWithUser, error)
}

// Request is a read-only view of the credentials a transport received.
// Either lookup may be nil.
type Request struct {
	Cookie func(name string) (string, bool)
	Header func(name string) string
}

// FromHTTP adapts an *http.Request.
func FromHTTP(r *http.Request) Request {
	return Request{
		Cookie: func(name string) (string, bool) {
			c, err := r.Cookie(name)
			if err != nil {
				return "", false
			}
			return c.Value, true
		},
		Header: r.Header.Get,
	}
}

// Token extracts the bearer token: the session cookie first, then the
// Authorization header.
func Token(req Request) string {
	if req.Cookie != nil {
		if v, ok := req.Cookie(common.SessionCookieName); ok && v != "" {
			return v
		}
	}
	if req.Header != nil {
		if h := req.Header(common.AuthorizationHeaderName); strings.HasPrefix(h, common.BearerPrefix) {
			return strings.TrimPrefix(h, common.BearerPrefix)
		}
	}
	return ""
}

// Resolve returns the session for req, or nil.
func Resolve(ctx context.Context, v Validator, req Request, logger logging.Logger) (s *models.SessionWithUser) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "session resolution panicked", "panic", r)
			s = nil
		}
	}()

	token := Token(req)
	if token == "" {
		return nil
	}

	s, err := v.Validate(ctx, token)
	if err != nil {
		logger.Debug(ctx, "session rejected", "error", err)
		return nil
	}
	return s
}

type ctxKey struct{}

func WithSession(ctx context.Context, s *models.SessionWithUser) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithSession, or nil.
func FromContext(ctx context.Context) *models.SessionWithUser {
	s, _ := ctx.Value(ctxKey{}).(*models.SessionWithUser)
	return s
}
