package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/farmgate/internal/common"
	"github.com/dmitrijs2005/farmgate/internal/dbx"
	"github.com/dmitrijs2005/farmgate/internal/server/models"
	"github.com/google/uuid"
)

// newID is a seam for tests.
var newID = func() string { return uuid.NewString() }

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpsertByEmail returns the user with the given email, creating it when absent.
func (r *PostgresRepository) UpsertByEmail(ctx context.Context, email string) (*models.User, error) {

	query :=
		`INSERT INTO users (id, email)
		 VALUES ($1, $2)
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING id, email, fullname, phone, role, created_at, updated_at
		 `

	user := &models.User{}
	var role sql.NullString
	err := r.db.QueryRowContext(ctx, query, newID(), email).Scan(
		&user.ID, &user.Email, &user.Fullname, &user.Phone, &role, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Role = roleFromNull(role)
	return user, nil
}

// LockForUpdate takes a row lock on the user. It only makes sense inside a
// transaction.
func (r *PostgresRepository) LockForUpdate(ctx context.Context, userID string) error {
	query :=
		`SELECT id FROM users
		 WHERE id = $1
		 FOR UPDATE
		 `

	var id string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetWithInfo(ctx context.Context, userID string) (*models.UserWithInfo, error) {
	query :=
		`SELECT u.id, u.email, u.fullname, u.phone, u.role, u.created_at, u.updated_at,
		        p.user_id, p.wilaya_id, p.city_id, p.address, p.farmer_license_number,
		        t.user_id, t.license_number, t.plate_number, t.vehicle_type, t.load_capacity_in_kg, t.vehicle_photo,
		        b.user_id
		 FROM users u
		 LEFT JOIN producer_infos p ON p.user_id = u.id
		 LEFT JOIN transporter_infos t ON t.user_id = u.id
		 LEFT JOIN buyer_infos b ON b.user_id = u.id
		 WHERE u.id = $1
		 `

	var (
		u     models.UserWithInfo
		role  sql.NullString
		pID   sql.NullString
		pWil  sql.NullInt64
		pCity sql.NullInt64
		pAddr sql.NullString
		pLic  sql.NullString
		tID   sql.NullString
		tLic  sql.NullString
		tPlt  sql.NullString
		tVeh  sql.NullString
		tCap  sql.NullInt64
		tPho  sql.NullString
		bID   sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&u.ID, &u.Email, &u.Fullname, &u.Phone, &role, &u.CreatedAt, &u.UpdatedAt,
		&pID, &pWil, &pCity, &pAddr, &pLic,
		&tID, &tLic, &tPlt, &tVeh, &tCap, &tPho,
		&bID,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.Role = roleFromNull(role)

	if pID.Valid {
		u.Producer = &models.ProducerInfo{
			WilayaID:            int(pWil.Int64),
			CityID:              int(pCity.Int64),
			Address:             pAddr.String,
			FarmerLicenseNumber: pLic.String,
		}
	}
	if tID.Valid {
		u.Transporter = &models.TransporterInfo{
			LicenseNumber:    tLic.String,
			PlateNumber:      tPlt.String,
			VehicleType:      models.VehicleType(tVeh.String),
			LoadCapacityInKg: int(tCap.Int64),
		}
		if tPho.Valid {
			photo := tPho.String
			u.Transporter.VehiclePhoto = &photo
		}
	}
	if bID.Valid {
		u.Buyer = &models.BuyerInfo{}
	}

	return &u, nil
}

func roleFromNull(s sql.NullString) *models.Role {
	if !s.Valid {
		return nil
	}
	r := models.Role(s.String)
	return &r
}
