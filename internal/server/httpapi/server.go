// Package httpapi serves the JSON HTTP API: OTP login, logout and the
// current-session endpoint.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/farmgate/internal/logging"
	"github.com/dmitrijs2005/farmgate/internal/server/gate"
	"github.com/dmitrijs2005/farmgate/internal/server/models"
)

// AuthService is the part of services.AuthService the HTTP transport uses.
type AuthService interface {
	IssueOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (*models.SessionWithToken, error)
	ResolveSession(ctx context.Context, req gate.Request) *models.SessionWithUser
	Logout(ctx context.Context, sessionID string) error
	Profile(ctx context.Context, s *models.SessionWithUser) *models.SessionWithUser
}

const shutdownTimeout = 10 * time.Second

type HTTPServer struct {
	address string
	auth    AuthService
	logger  logging.Logger
	cookies gate.CookiePolicy
}

func NewHTTPServer(a string, l logging.Logger, auth AuthService, cookies gate.CookiePolicy) *HTTPServer {
	return &HTTPServer{
		address: a,
		logger:  l.With("module", "http_server"),
		auth:    auth,
		cookies: cookies,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
