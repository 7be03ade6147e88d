package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/farmgate/internal/dbx"
	"github.com/dmitrijs2005/farmgate/internal/server/repositories/otps"
	"github.com/dmitrijs2005/farmgate/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/farmgate/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	OTPs(db dbx.DBTX) otps.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
