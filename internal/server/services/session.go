package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/farmgate/internal/common"
	"github.com/dmitrijs2005/farmgate/internal/logging"
	"github.com/dmitrijs2005/farmgate/internal/server/auth"
	"github.com/dmitrijs2005/farmgate/internal/server/config"
	"github.com/dmitrijs2005/farmgate/internal/server/models"
	"github.com/dmitrijs2005/farmgate/internal/server/repositories/repomanager"
)

// newID is a seam for tests.
var newID = auth.NewID

// SessionService mints bearer tokens and validates them. A session lives
// for inactiveTimeout from creation; lastVerifiedAt is written back at most
// once per activityCheckInterval.
type SessionService struct {
	db                    *sql.DB
	repomanager           repomanager.RepositoryManager
	logger                logging.Logger
	inactiveTimeout       time.Duration
	activityCheckInterval time.Duration
	now                   func() time.Time
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *SessionService {
	return &SessionService{
		db:                    db,
		repomanager:           m,
		logger:                logger.With("module", "session"),
		inactiveTimeout:       cfg.SessionInactiveTimeout,
		activityCheckInterval: cfg.SessionActivityCheckInterval,
		now:                   time.Now,
	}
}

// Create persists a new session for userID and returns it with its token.
// The token is not recoverable afterwards.
func (s *SessionService) Create(ctx context.Context, userID string) (*models.SessionWithToken, error) {
	id, err := newID()
	if err != nil {
		s.logger.Error(ctx, "generate session id failed", "error", err)
		return nil, common.ErrorInternal
	}
	secret, err := newID()
	if err != nil {
		s.logger.Error(ctx, "generate session secret failed", "error", err)
		return nil, common.ErrorInternal
	}

	now := s.now()
	session := models.Session{
		ID:             id,
		UserID:         userID,
		SecretHash:     auth.HashSecret(secret),
		CreatedAt:      now,
		LastVerifiedAt: now,
	}

	if err := s.repomanager.Sessions(s.db).Create(ctx, &session); err != nil {
		s.logger.Error(ctx, "store session failed", "user_id", userID, "error", err)
		return nil, common.ErrorInternal
	}

	return &models.SessionWithToken{Session: session, Token: auth.JoinToken(id, secret)}, nil
}

// Validate resolves token to its session and user. Every rejection is
// common.ErrorUnauthorized; storage failures are returned wrapped.
func (s *SessionService) Validate(ctx context.Context, token string) (*models.SessionWithUser, error) {
	id, secret, ok := auth.SplitToken(token)
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	repo := s.repomanager.Sessions(s.db)

	session, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	now := s.now()

	if now.Sub(session.CreatedAt) >= s.inactiveTimeout {
		if err := repo.DeleteByID(ctx, session.ID); err != nil {
			s.logger.Warn(ctx, "delete expired session failed", "session_id", session.ID, "error", err)
		}
		return nil, common.ErrorUnauthorized
	}

	if !auth.ConstantTimeEqual(auth.HashSecret(secret), session.SecretHash) {
		return nil, common.ErrorUnauthorized
	}

	if now.Sub(session.LastVerifiedAt) >= s.activityCheckInterval {
		if err := repo.UpdateLastVerifiedAt(ctx, session.ID, now); err != nil {
			return nil, fmt.Errorf("refresh session: %w", err)
		}
		session.LastVerifiedAt = now
	}

	user, err := s.repomanager.Users(s.db).GetWithInfo(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	return &models.SessionWithUser{
		ID:             session.ID,
		User:           user,
		CreatedAt:      session.CreatedAt,
		LastVerifiedAt: session.LastVerifiedAt,
	}, nil
}

// DeleteByID removes a session. Unknown ids are ignored.
func (s *SessionService) DeleteByID(ctx context.Context, id string) error {
	return s.repomanager.Sessions(s.db).DeleteByID(ctx, id)
}

// PurgeExpired removes sessions past their absolute lifetime.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repomanager.Sessions(s.db).PurgeCreatedBefore(ctx, s.now().Add(-s.inactiveTimeout))
}
