package otps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/farmgate/internal/common"
	"github.com/dmitrijs2005/farmgate/internal/dbx"
	"github.com/dmitrijs2005/farmgate/internal/server/models"
	"github.com/google/uuid"
)

var newID = func() string { return uuid.NewString() }

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, otp *models.OneTimePassword) (*models.OneTimePassword, error) {

	query :=
		`INSERT INTO one_time_passwords (id, user_id, code, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		newID(), otp.UserID, otp.Code, otp.ExpiresAt).Scan(&otp.ID, &otp.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return otp, nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM one_time_passwords WHERE user_id = $1`

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// ConsumeLive deletes and returns the OTP matching code for the user with the
// given email that has not expired at now. The delete makes a code usable
// once even under concurrent calls. Wrong code, unknown email and expiry all
// yield common.ErrorNotFound.
func (r *PostgresRepository) ConsumeLive(ctx context.Context, code, email string, now time.Time) (*models.OneTimePassword, error) {
	query :=
		`DELETE FROM one_time_passwords o
		 USING users u
		 WHERE o.user_id = u.id AND o.code = $1 AND u.email = $2 AND o.expires_at > $3
		 RETURNING o.id, o.user_id, o.code, o.expires_at, o.created_at
		 `

	otp := &models.OneTimePassword{}
	err := r.db.QueryRowContext(ctx, query, code, email, now).Scan(
		&otp.ID, &otp.UserID, &otp.Code, &otp.ExpiresAt, &otp.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return otp, nil
}

func (r *PostgresRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM one_time_passwords WHERE expires_at <= $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
