package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophgallery/internal/dbx"
	"github.com/dmitrijs2005/gophgallery/internal/server/migrations"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/albums"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/artifacts"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager is the default backend; it keeps the whole
// gallery in a single database file.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Dialect() dbx.Dialect { return dbx.DialectSQLite }

func (m *SQLiteRepositoryManager) Albums(db dbx.DBTX) albums.Repository {
	return albums.NewSQLRepository(db, dbx.DialectSQLite)
}

func (m *SQLiteRepositoryManager) Artifacts(db dbx.DBTX) artifacts.Repository {
	return artifacts.NewSQLRepository(db, dbx.DialectSQLite)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, "sqlite3", migrations.SQLiteDir)
}

func NewSQLiteRepositoryManager() RepositoryManager {
	return &SQLiteRepositoryManager{}
}
