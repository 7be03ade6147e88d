// Package services contains server-side business logic: issuing and
// verifying one-time passwords, minting and validating sessions, and the
// AuthService facade the transports call.
package services

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/farmgate/internal/common"
	"github.com/dmitrijs2005/farmgate/internal/dbx"
	"github.com/dmitrijs2005/farmgate/internal/logging"
	"github.com/dmitrijs2005/farmgate/internal/server/auth"
	"github.com/dmitrijs2005/farmgate/internal/server/config"
	"github.com/dmitrijs2005/farmgate/internal/server/models"
	"github.com/dmitrijs2005/farmgate/internal/server/ratelimit"
	"github.com/dmitrijs2005/farmgate/internal/server/repositories/repomanager"
)

// OTPMailer delivers a code to the user.
type OTPMailer interface {
	SendOTP(ctx context.Context, to, code string, validity time.Duration) error
}

const cleanupTimeout = 10 * time.Second

// generateCode is a seam for tests.
var generateCode = auth.GenerateOTPCode

// NormalizeEmail trims and lowercases an address so it can be used as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is a bare RFC 5322 address.
func ValidEmail(email string) bool {
	a, err := mail.ParseAddress(email)
	return err == nil && a.Address == email
}

// OTPService issues and verifies emailed one-time passwords. A user has at
// most one live code; issuing a new one replaces the previous.
type OTPService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mailer      OTPMailer
	limiter     ratelimit.Limiter
	logger      logging.Logger
	validity    time.Duration
	now         func() time.Time
	wg          sync.WaitGroup
}

func NewOTPService(db *sql.DB, m repomanager.RepositoryManager, mailer OTPMailer, limiter ratelimit.Limiter,
	cfg *config.Config, logger logging.Logger) *OTPService {
	if limiter == nil {
		limiter = ratelimit.Nop{}
	}
	return &OTPService{
		db:          db,
		repomanager: m,
		mailer:      mailer,
		limiter:     limiter,
		logger:      logger.With("module", "otp"),
		validity:    cfg.OTPValidityDuration,
		now:         time.Now,
	}
}

func (s *OTPService) allow(ctx context.Context, key string) bool {
	ok, err := s.limiter.Allow(ctx, key)
	if err != nil {
		s.logger.Warn(ctx, "rate limiter unavailable", "error", err)
	}
	return ok
}

// Issue creates a fresh code for email, creating the user on first contact,
// and mails it.
func (s *OTPService) Issue(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	if !s.allow(ctx, "send:"+email) {
		return common.ErrTooManyAttempts
	}

	user, err := s.repomanager.Users(s.db).UpsertByEmail(ctx, email)
	if err != nil {
		s.logger.Error(ctx, "upsert user failed", "error", err)
		return common.ErrorInternal
	}

	code, err := generateCode()
	if err != nil {
		s.logger.Error(ctx, "generate code failed", "error", err)
		return common.ErrorInternal
	}

	otp := &models.OneTimePassword{
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: s.now().Add(s.validity),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockForUpdate(ctx, user.ID); err != nil {
			return err
		}
		if _, err := s.repomanager.OTPs(tx).DeleteByUser(ctx, user.ID); err != nil {
			return err
		}
		_, err := s.repomanager.OTPs(tx).Create(ctx, otp)
		return err
	})
	if err != nil {
		s.logger.Error(ctx, "store otp failed", "user_id", user.ID, "error", err)
		return common.ErrorInternal
	}

	if err := s.mailer.SendOTP(ctx, email, code, s.validity); err != nil {
		s.logger.Error(ctx, "send otp failed", "user_id", user.ID, "error", err)
		return common.ErrorInternal
	}

	s.logger.Info(ctx, "otp issued", "user_id", user.ID, "expires_at", otp.ExpiresAt)
	return nil
}

// Verify checks code against the live OTP of email and returns the owner's
// id. Wrong, unknown and expired codes are indistinguishable. The matched row
// is deleted by the lookup itself; any other codes of the user are removed in
// the background.
func (s *OTPService) Verify(ctx context.Context, email, code string) (string, error) {
	email = NormalizeEmail(email)

	if !s.allow(ctx, "verify:"+email) {
		return "", common.ErrTooManyAttempts
	}

	otp, err := s.repomanager.OTPs(s.db).ConsumeLive(ctx, code, email, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrInvalidOTP
		}
		s.logger.Error(ctx, "find otp failed", "error", err)
		return "", common.ErrorInternal
	}

	s.consume(ctx, otp.UserID)

	if err := s.limiter.Reset(ctx, "verify:"+email); err != nil {
		s.logger.Warn(ctx, "rate limiter reset failed", "error", err)
	}

	return otp.UserID, nil
}

// consume deletes every OTP of the user without blocking the caller.
func (s *OTPService) consume(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		if _, err := s.repomanager.OTPs(s.db).DeleteByUser(ctx, userID); err != nil {
			s.logger.Error(ctx, "delete used otp failed", "user_id", userID, "error", err)
		}
	}()
}

// Wait blocks until background deletions have finished.
func (s *OTPService) Wait() {
	s.wg.Wait()
}

// PurgeExpired removes codes past their expiry.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repomanager.OTPs(s.db).PurgeExpired(ctx, s.now())
}
