package services

import (
	"context"

	"github.com/dmitrijs2005/farmgate/internal/common"
	"github.com/dmitrijs2005/farmgate/internal/logging"
	"github.com/dmitrijs2005/farmgate/internal/server/gate"
	"github.com/dmitrijs2005/farmgate/internal/server/models"
)

// URLSigner turns a stored object key into a downloadable URL.
type URLSigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

// AuthService is what the transports talk to.
type AuthService struct {
	otps     *OTPService
	sessions *SessionService
	signer   URLSigner
	logger   logging.Logger
}

// NewAuthService wires the facade. signer may be nil, in which case media
// keys are returned unchanged.
func NewAuthService(otps *OTPService, sessions *SessionService, signer URLSigner, logger logging.Logger) *AuthService {
	return &AuthService{otps: otps, sessions: sessions, signer: signer, logger: logger.With("module", "auth")}
}

func (s *AuthService) IssueOTP(ctx context.Context, email string) error {
	return s.otps.Issue(ctx, email)
}

// VerifyOTP exchanges a valid code for a new session.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*models.SessionWithToken, error) {
	userID, err := s.otps.Verify(ctx, email, code)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Create(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "session created", "user_id", userID, "session_id", session.ID)
	return session, nil
}

func (s *AuthService) ResolveSession(ctx context.Context, req gate.Request) *models.SessionWithUser {
	return gate.Resolve(ctx, s.sessions, req, s.logger)
}

// Logout deletes the session. It is idempotent.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		s.logger.Error(ctx, "delete session failed", "session_id", sessionID, "error", err)
		return common.ErrorInternal
	}
	return nil
}

// Profile returns a copy of sess fit for the client: media keys are replaced
// with presigned URLs when a signer is configured.
func (s *AuthService) Profile(ctx context.Context, sess *models.SessionWithUser) *models.SessionWithUser {
	if sess == nil || sess.User == nil || s.signer == nil {
		return sess
	}

	tr := sess.User.Transporter
	if tr == nil || tr.VehiclePhoto == nil || *tr.VehiclePhoto == "" {
		return sess
	}

	url, err := s.signer.PresignGet(ctx, *tr.VehiclePhoto)
	if err != nil {
		s.logger.Warn(ctx, "presign vehicle photo failed", "user_id", sess.User.ID, "error", err)
		return sess
	}

	user := *sess.User
	transporter := *tr
	transporter.VehiclePhoto = &url
	user.Transporter = &transporter

	out := *sess
	out.User = &user
	return &out
}

// Wait blocks until background work started by the service has finished.
func (s *AuthService) Wait() {
	s.otps.Wait()
}

// PurgeExpired removes expired codes and sessions.
func (s *AuthService) PurgeExpired(ctx context.Context) (otps, sessions int64, err error) {
	if otps, err = s.otps.PurgeExpired(ctx); err != nil {
		return 0, 0, err
	}
	if sessions, err = s.sessions.PurgeExpired(ctx); err != nil {
		return otps, 0, err
	}
	return otps, sessions, nil
}
