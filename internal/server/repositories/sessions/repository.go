package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/farmgate/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	UpdateLastVerifiedAt(ctx context.Context, id string, at time.Time) error
	DeleteByID(ctx context.Context, id string) error
	PurgeCreatedBefore(ctx context.Context, before time.Time) (int64, error)
}
