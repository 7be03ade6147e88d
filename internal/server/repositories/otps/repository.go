package otps

import (
	"context"
	"time"

	"github.com/dmitrijs2005/farmgate/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, otp *models.OneTimePassword) (*models.OneTimePassword, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	ConsumeLive(ctx context.Context, code, email string, now time.Time) (*models.OneTimePassword, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
