package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/dbx"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Put(ctx context.Context, a *models.Artifact) error {
	query := `INSERT INTO artifacts (name, rel_path, size, class, thumbnail_name, thumbnail_rel_path, token_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			rel_path = excluded.rel_path,
			size = excluded.size,
			class = excluded.class,
			thumbnail_name = excluded.thumbnail_name,
			thumbnail_rel_path = excluded.thumbnail_rel_path,
			token_hash = excluded.token_hash,
			created_at = excluded.created_at`

	_, err := r.db.ExecContext(ctx, dbx.Rebind(r.dialect, query),
		a.Name, a.RelPath, a.Size, string(a.Class),
		nullString(a.ThumbnailName), nullString(a.ThumbnailRelPath),
		a.TokenHash, a.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert artifact: %w", err)
	}
	return nil
}

const selectArtifact = `SELECT name, rel_path, size, class, thumbnail_name, thumbnail_rel_path, token_hash, created_at
		FROM artifacts`

func (r *SQLRepository) Get(ctx context.Context, name string) (*models.Artifact, error) {
	row := r.db.QueryRowContext(ctx, dbx.Rebind(r.dialect, selectArtifact+` WHERE name = ?`), name)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("get artifact", fmt.Sprintf("artifact %q", name))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select artifact: %w", err)
	}
	return a, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]*models.Artifact, error) {
	rows, err := r.db.QueryContext(ctx, selectArtifact+` ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Artifact, 0)
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate artifacts: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) Delete(ctx context.Context, name string) (bool, error) {
	res, err := r.db.ExecContext(ctx, dbx.Rebind(r.dialect, `DELETE FROM artifacts WHERE name = ?`), name)
	if err != nil {
		return false, fmt.Errorf("failed to delete artifact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (*models.Artifact, error) {
	var (
		a            models.Artifact
		class        string
		thumb, tpath sql.NullString
		created      int64
	)
	if err := row.Scan(&a.Name, &a.RelPath, &a.Size, &class, &thumb, &tpath, &a.TokenHash, &created); err != nil {
		return nil, err
	}
	a.Class = models.Class(class)
	a.ThumbnailName = thumb.String
	a.ThumbnailRelPath = tpath.String
	a.CreatedAt = time.UnixMilli(created).UTC()
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
