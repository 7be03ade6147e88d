package users

import (
	"context"

	"github.com/dmitrijs2005/farmgate/internal/server/models"
)

type Repository interface {
	UpsertByEmail(ctx context.Context, email string) (*models.User, error)
	LockForUpdate(ctx context.Context, userID string) error
	GetWithInfo(ctx context.Context, userID string) (*models.UserWithInfo, error)
}
