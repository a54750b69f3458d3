package albums

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/dbx"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
)

const albumColumns = `a.id, a.name, a.description, a.owner_id, a.thumbnail, a.file_count, a.created_at, a.updated_at`

// SQLRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx)
// for both sqlite and postgres; queries are written with '?' and rebound.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) q(query string) string {
	return dbx.Rebind(r.dialect, query)
}

func (r *SQLRepository) Create(ctx context.Context, a *models.Album) error {
	query := `INSERT INTO albums (name, description, owner_id, thumbnail, file_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?) RETURNING id`

	ownerID, _ := a.Owner.UserID()
	err := r.db.QueryRowContext(ctx, r.q(query),
		a.Name, nullString(a.Description), nullString(ownerID), nullString(a.Thumbnail),
		a.CreatedAt.UnixMilli(), a.UpdatedAt.UnixMilli(),
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to insert album: %w", err)
	}
	a.FileCount = 0
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, id int64) (*models.Album, error) {
	query := `SELECT ` + albumColumns + ` FROM albums a WHERE a.id = ?`

	a, err := scanAlbum(r.db.QueryRowContext(ctx, r.q(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("get album", fmt.Sprintf("album %d", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select album: %w", err)
	}
	return a, nil
}

func (r *SQLRepository) List(ctx context.Context, v models.Viewer) ([]*models.Album, error) {
	where, args := visibility(v)
	query := `SELECT ` + albumColumns + ` FROM albums a` + where + ` ORDER BY a.updated_at DESC, a.id DESC`
	return r.selectAlbums(ctx, query, args...)
}

func (r *SQLRepository) Search(ctx context.Context, query string, v models.Viewer) ([]*models.Album, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"

	where, args := visibility(v)
	cond := `(LOWER(a.name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(a.description, '')) LIKE ? ESCAPE '\')`
	if where == "" {
		where = ` WHERE ` + cond
	} else {
		where += ` AND ` + cond
	}
	args = append(args, pattern, pattern)

	q := `SELECT ` + albumColumns + ` FROM albums a` + where + ` ORDER BY a.updated_at DESC, a.id DESC`
	return r.selectAlbums(ctx, q, args...)
}

func (r *SQLRepository) Update(ctx context.Context, a *models.Album) error {
	query := `UPDATE albums SET name = ?, description = ?, owner_id = ?, thumbnail = ?, updated_at = ? WHERE id = ?`

	ownerID, _ := a.Owner.UserID()
	res, err := r.db.ExecContext(ctx, r.q(query),
		a.Name, nullString(a.Description), nullString(ownerID), nullString(a.Thumbnail), a.UpdatedAt.UnixMilli(), a.ID)
	if err != nil {
		return fmt.Errorf("failed to update album: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.NotFound("update album", fmt.Sprintf("album %d", a.ID))
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM albums WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete album: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) AddFiles(ctx context.Context, albumID int64, names []string, at time.Time) ([]models.AlbumFile, error) {
	if err := r.ensureExists(ctx, albumID, "add files"); err != nil {
		return nil, err
	}

	query := r.q(`INSERT INTO album_files (album_id, file_name, added_at) VALUES (?, ?, ?)
		ON CONFLICT (album_id, file_name) DO NOTHING`)

	created := make([]models.AlbumFile, 0, len(names))
	for _, name := range dedupe(names) {
		res, err := r.db.ExecContext(ctx, query, albumID, name, at.UnixMilli())
		if err != nil {
			return nil, fmt.Errorf("failed to insert album file %q: %w", name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 1 {
			created = append(created, models.AlbumFile{AlbumID: albumID, FileName: name, AddedAt: at})
		}
	}

	if err := r.recount(ctx, albumID, at, len(created) > 0); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *SQLRepository) RemoveFiles(ctx context.Context, albumID int64, names []string, at time.Time) (bool, error) {
	if err := r.ensureExists(ctx, albumID, "remove files"); err != nil {
		return false, err
	}

	var removed int64
	if names = dedupe(names); len(names) > 0 {
		args := make([]any, 0, len(names)+1)
		args = append(args, albumID)
		for _, n := range names {
			args = append(args, n)
		}
		query := `DELETE FROM album_files WHERE album_id = ? AND file_name IN (` + placeholders(len(names)) + `)`

		res, err := r.db.ExecContext(ctx, r.q(query), args...)
		if err != nil {
			return false, fmt.Errorf("failed to delete album files: %w", err)
		}
		if removed, err = res.RowsAffected(); err != nil {
			return false, fmt.Errorf("failed to get rows affected: %w", err)
		}
	}

	if err := r.recount(ctx, albumID, at, removed > 0); err != nil {
		return false, err
	}
	return removed > 0, nil
}

func (r *SQLRepository) RemoveFileEverywhere(ctx context.Context, name string, at time.Time) (bool, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`DELETE FROM album_files WHERE file_name = ? RETURNING album_id`), name)
	if err != nil {
		return false, fmt.Errorf("failed to delete file from albums: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return false, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return false, err
	}
	rows.Close()

	if len(ids) == 0 {
		return false, nil
	}

	slices.Sort(ids)
	ids = slices.Compact(ids)
	if err := r.lock(ctx, ids); err != nil {
		return false, err
	}
	for _, id := range ids {
		if err := r.recount(ctx, id, at, true); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (r *SQLRepository) Files(ctx context.Context, albumID int64) ([]string, error) {
	query := `SELECT file_name FROM album_files WHERE album_id = ? ORDER BY added_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, r.q(query), albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to select album files: %w", err)
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		result = append(result, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLRepository) AlbumsForFile(ctx context.Context, name string) ([]*models.Album, error) {
	query := `SELECT ` + albumColumns + ` FROM albums a
		JOIN album_files af ON af.album_id = a.id
		WHERE af.file_name = ? ORDER BY a.name, a.id`
	return r.selectAlbums(ctx, query, name)
}

func (r *SQLRepository) Stats(ctx context.Context, v models.Viewer) (models.AlbumStats, error) {
	where, args := visibility(v)
	query := `SELECT COUNT(*), COALESCE(SUM(a.file_count), 0) FROM albums a` + where

	var albums, files int64
	if err := r.db.QueryRowContext(ctx, r.q(query), args...).Scan(&albums, &files); err != nil {
		return models.AlbumStats{}, fmt.Errorf("failed to select album stats: %w", err)
	}

	stats := models.AlbumStats{TotalAlbums: int(albums), TotalFiles: int(files)}
	if albums > 0 {
		stats.AverageFilesPerAlbum = int(math.Round(float64(files) / float64(albums)))
	}
	return stats, nil
}

// recount rebuilds file_count from the association table. updated_at only
// moves when the album contents changed.
func (r *SQLRepository) recount(ctx context.Context, albumID int64, at time.Time, touch bool) error {
	var (
		res sql.Result
		err error
	)
	if touch {
		query := `UPDATE albums SET file_count = (SELECT COUNT(DISTINCT file_name) FROM album_files WHERE album_id = ?),
			updated_at = ? WHERE id = ?`
		res, err = r.db.ExecContext(ctx, r.q(query), albumID, at.UnixMilli(), albumID)
	} else {
		query := `UPDATE albums SET file_count = (SELECT COUNT(DISTINCT file_name) FROM album_files WHERE album_id = ?)
			WHERE id = ?`
		res, err = r.db.ExecContext(ctx, r.q(query), albumID, albumID)
	}
	if err != nil {
		return fmt.Errorf("failed to recount album %d: %w", albumID, err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return nil
}

// ensureExists also takes the album's row lock on postgres, so a concurrent
// change to the same album waits and recounts against committed rows.
func (r *SQLRepository) ensureExists(ctx context.Context, albumID int64, op string) error {
	var one int
	err := r.db.QueryRowContext(ctx, r.q(`SELECT 1 FROM albums WHERE id = ?`+r.forUpdate()), albumID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return common.NotFound(op, fmt.Sprintf("album %d", albumID))
	}
	if err != nil {
		return fmt.Errorf("failed to check album: %w", err)
	}
	return nil
}

// lock takes the row locks of ids, which must be sorted, in order. Sqlite
// serializes writers on its own.
func (r *SQLRepository) lock(ctx context.Context, ids []int64) error {
	if r.dialect != dbx.DialectPostgres {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT id FROM albums WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id` + r.forUpdate()
	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return fmt.Errorf("failed to lock albums: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	return rows.Err()
}

func (r *SQLRepository) forUpdate() string {
	if r.dialect == dbx.DialectPostgres {
		return ` FOR UPDATE`
	}
	return ""
}

func (r *SQLRepository) selectAlbums(ctx context.Context, query string, args ...any) ([]*models.Album, error) {
	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select albums: %w", err)
	}
	defer rows.Close()

	result := []*models.Album{}
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlbum(s scanner) (*models.Album, error) {
	var (
		a                  models.Album
		desc, owner, thumb sql.NullString
		created, updated   int64
	)
	if err := s.Scan(&a.ID, &a.Name, &desc, &owner, &thumb, &a.FileCount, &created, &updated); err != nil {
		return nil, err
	}
	a.Description = desc.String
	a.Owner = models.UserOwner(owner.String)
	a.Thumbnail = thumb.String
	a.CreatedAt = time.UnixMilli(created).UTC()
	a.UpdatedAt = time.UnixMilli(updated).UTC()
	return &a, nil
}

func visibility(v models.Viewer) (string, []any) {
	id, ok := v.UserID()
	if !ok {
		return "", nil
	}
	return ` WHERE (a.owner_id = ? OR a.owner_id IS NULL)`, []any{id}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
