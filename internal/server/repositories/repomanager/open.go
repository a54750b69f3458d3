package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophgallery/internal/server/config"
)

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Open connects to the configured database, applies pending migrations and
// returns the connection together with the matching manager.
//
// SQLite connections are pinned to a single connection with foreign keys
// enabled; cascades on album deletion depend on it.
func Open(ctx context.Context, cfg config.Database) (*sql.DB, RepositoryManager, error) {
	var (
		driver, dsn string
		m           RepositoryManager
	)
	switch cfg.Driver {
	case "", "sqlite":
		driver, dsn, m = "sqlite", sqliteDSN(cfg.DSN), NewSQLiteRepositoryManager()
	case "postgres":
		driver, dsn, m = "pgx", cfg.DSN, NewPostgresRepositoryManager()
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return db, m, nil
}

func sqliteDSN(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
