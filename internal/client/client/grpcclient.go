package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/farmgate/internal/common"
	"github.com/dmitrijs2005/farmgate/internal/rpc"
	"github.com/dmitrijs2005/farmgate/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	conn   *grpc.ClientConn
	client rpc.AuthServiceClient

	mu    sync.RWMutex
	token string
}

func withBearer(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) bearerInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if token := s.currentToken(); token != "" {
		ctx = withBearer(ctx, token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient dials endpoint lazily; extra options are appended after the
// defaults (insecure transport, bearer interceptor).
func NewGRPCClient(endpoint string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.bearerInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = rpc.NewAuthServiceClient(conn)
	return c, nil
}

func (s *GRPCClient) currentToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *GRPCClient) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) RequestCode(ctx context.Context, email string) error {
	if _, err := s.client.SendOTP(ctx, &rpc.SendOTPRequest{Email: email}); err != nil {
		return s.mapError(err)
	}
	return nil
}

// Login exchanges the emailed code for a bearer token and starts using it.
func (s *GRPCClient) Login(ctx context.Context, email, code string) (string, error) {
	resp, err := s.client.VerifyOTP(ctx, &rpc.VerifyOTPRequest{Email: email, Code: code})
	if err != nil {
		return "", s.mapError(err)
	}
	s.SetToken(resp.Token)
	return resp.Token, nil
}

func (s *GRPCClient) Me(ctx context.Context) (*models.SessionWithUser, error) {
	resp, err := s.client.Me(ctx, &rpc.MeRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	if !resp.Success || resp.Session == nil || resp.Session.User == nil {
		return nil, ErrUnauthorized
	}
	return resp.Session, nil
}

func (s *GRPCClient) Logout(ctx context.Context) error {
	if _, err := s.client.Logout(ctx, &rpc.LogoutRequest{}); err != nil {
		return s.mapError(err)
	}
	s.SetToken("")
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.ResourceExhausted:
		return common.ErrTooManyAttempts
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrorValidation, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
