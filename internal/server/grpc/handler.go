package grpc

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/farmgate/internal/common"
	"github.com/dmitrijs2005/farmgate/internal/rpc"
	"github.com/dmitrijs2005/farmgate/internal/server/gate"
	"github.com/dmitrijs2005/farmgate/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidOTP):
		return status.Error(codes.Unauthenticated, "INVALID_OTP")
	case errors.Is(err, common.ErrTooManyAttempts):
		return status.Error(codes.ResourceExhausted, "TOO_MANY_REQUESTS")
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, "BAD_REQUEST")
	default:
		return status.Error(codes.Internal, "INTERNAL_SERVER_ERROR")
	}
}

func (s *GRPCServer) setCookie(ctx context.Context, c *http.Cookie) {
	if err := grpc.SetHeader(ctx, metadata.Pairs("set-cookie", c.String())); err != nil {
		s.logger.Warn(ctx, "set-cookie header not sent", "error", err)
	}
}

func (s *GRPCServer) SendOTP(ctx context.Context, req *rpc.SendOTPRequest) (*rpc.SendOTPResponse, error) {
	email := services.NormalizeEmail(req.Email)
	if !services.ValidEmail(email) {
		return nil, toStatus(common.ErrorValidation)
	}

	if err := s.auth.IssueOTP(ctx, email); err != nil {
		return nil, toStatus(err)
	}

	return &rpc.SendOTPResponse{Success: true}, nil
}

func (s *GRPCServer) VerifyOTP(ctx context.Context, req *rpc.VerifyOTPRequest) (*rpc.VerifyOTPResponse, error) {
	email := services.NormalizeEmail(req.Email)
	if !services.ValidEmail(email) || len(req.Code) != 6 {
		return nil, toStatus(common.ErrorValidation)
	}

	session, err := s.auth.VerifyOTP(ctx, email, req.Code)
	if err != nil {
		return nil, toStatus(err)
	}

	s.setCookie(ctx, s.cookies.SessionCookie(session.Token))
	return &rpc.VerifyOTPResponse{Success: true, Token: session.Token}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, _ *rpc.LogoutRequest) (*rpc.LogoutResponse, error) {
	if sess := gate.FromContext(ctx); sess != nil {
		if err := s.auth.Logout(ctx, sess.ID); err != nil {
			return nil, toStatus(err)
		}
	}

	s.setCookie(ctx, s.cookies.ClearSessionCookie())
	return &rpc.LogoutResponse{Success: true}, nil
}

func (s *GRPCServer) Me(ctx context.Context, _ *rpc.MeRequest) (*rpc.MeResponse, error) {
	sess := gate.FromContext(ctx)
	if sess == nil {
		return &rpc.MeResponse{Success: false}, nil
	}
	return &rpc.MeResponse{Success: true, Session: s.auth.Profile(ctx, sess)}, nil
}
