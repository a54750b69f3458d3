package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, name string) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx, `SELECT token FROM deletion_tokens WHERE file_name = ?`, name).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get token[%s]: %w", name, err)
	}
	return token, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, name, token string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO deletion_tokens (file_name, token, uploaded_at) VALUES (?, ?, ?)
		ON CONFLICT(file_name) DO UPDATE SET token = excluded.token, uploaded_at = excluded.uploaded_at
	`, name, token, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to set token[%s]: %w", name, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM deletion_tokens WHERE file_name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete token[%s]: %w", name, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT file_name, token FROM deletion_tokens`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var name, token string
		if err := rows.Scan(&name, &token); err != nil {
			return nil, fmt.Errorf("failed to scan token row: %w", err)
		}
		result[name] = token
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate token rows: %w", err)
	}
	return result, nil
}
