package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophgallery/internal/dbx"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/albums"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/artifacts"
)

type RepositoryManager interface {
	Dialect() dbx.Dialect
	RunMigrations(context.Context, *sql.DB) error
	Albums(db dbx.DBTX) albums.Repository
	Artifacts(db dbx.DBTX) artifacts.Repository
}
