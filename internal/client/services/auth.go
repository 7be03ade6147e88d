// Package services contains application services for the farmgate CLI.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/farmgate/internal/client/client"
	"github.com/dmitrijs2005/farmgate/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/farmgate/internal/common"
	"github.com/dmitrijs2005/farmgate/internal/dbx"
	"github.com/dmitrijs2005/farmgate/internal/server/models"
)

// AuthService drives the email code login and keeps the resulting bearer
// token in the local store so it survives restarts.
type AuthService interface {
	RequestCode(ctx context.Context, email string) error
	Login(ctx context.Context, email, code string) error
	// Restore loads a saved token into the client and returns the email it
	// was issued for, or "" when nothing is saved.
	Restore(ctx context.Context) (string, error)
	Me(ctx context.Context) (*models.SessionWithUser, error)
	Logout(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
}

func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

func (a *authService) getMetadataRepo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (a *authService) RequestCode(ctx context.Context, email string) error {
	return a.client.RequestCode(ctx, email)
}

func (a *authService) Login(ctx context.Context, email, code string) error {
	token, err := a.client.Login(ctx, email, code)
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.getMetadataRepo(tx)
		if err := repo.Set(ctx, metadata.KeyToken, []byte(token)); err != nil {
			return err
		}
		return repo.Set(ctx, metadata.KeyEmail, []byte(email))
	})
	if err != nil {
		return fmt.Errorf("token saving error: %w", err)
	}
	return nil
}

func (a *authService) Restore(ctx context.Context) (string, error) {
	repo := a.getMetadataRepo(a.db)

	token, err := repo.Get(ctx, metadata.KeyToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil
		}
		return "", err
	}

	email, err := repo.Get(ctx, metadata.KeyEmail)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return "", err
	}

	a.client.SetToken(string(token))
	return string(email), nil
}

// Me asks the server who the saved token belongs to. A rejected token is
// dropped from the local store.
func (a *authService) Me(ctx context.Context) (*models.SessionWithUser, error) {
	s, err := a.client.Me(ctx)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.client.SetToken("")
			if cerr := a.getMetadataRepo(a.db).Clear(ctx); cerr != nil {
				return nil, cerr
			}
		}
		return nil, err
	}
	return s, nil
}

// Logout ends the server session and wipes the local store. Local data is
// wiped even when the server is unreachable.
func (a *authService) Logout(ctx context.Context) error {
	serverErr := a.client.Logout(ctx)
	a.client.SetToken("")

	if err := a.getMetadataRepo(a.db).Clear(ctx); err != nil {
		return err
	}
	if serverErr != nil && !errors.Is(serverErr, client.ErrUnauthorized) {
		return serverErr
	}
	return nil
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
