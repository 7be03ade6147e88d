package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/farmgate/internal/logging"
	"github.com/dmitrijs2005/farmgate/internal/rpc"
	"github.com/dmitrijs2005/farmgate/internal/server/gate"
	"github.com/dmitrijs2005/farmgate/internal/server/models"
	"google.golang.org/grpc"
)

// AuthService is the part of services.AuthService the gRPC transport uses.
type AuthService interface {
	IssueOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (*models.SessionWithToken, error)
	ResolveSession(ctx context.Context, req gate.Request) *models.SessionWithUser
	Logout(ctx context.Context, sessionID string) error
	Profile(ctx context.Context, s *models.SessionWithUser) *models.SessionWithUser
}

type GRPCServer struct {
	address string
	auth    AuthService
	logger  logging.Logger
	cookies gate.CookiePolicy
}

func NewGRPCServer(a string, l logging.Logger, auth AuthService, cookies gate.CookiePolicy) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		auth:    auth,
		cookies: cookies,
	}
}

// NewServer returns a grpc.Server with the session interceptor installed and
// the auth service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.sessionInterceptor))
	srv := grpc.NewServer(opts...)
	rpc.RegisterAuthServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
