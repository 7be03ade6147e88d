package client

import (
	"context"

	"github.com/dmitrijs2005/farmgate/internal/server/models"
)

type Client interface {
	Close() error
	SetToken(token string)
	RequestCode(ctx context.Context, email string) error
	Login(ctx context.Context, email, code string) (string, error)
	Me(ctx context.Context) (*models.SessionWithUser, error)
	Logout(ctx context.Context) error
}
