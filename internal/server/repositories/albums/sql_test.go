package albums

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/dbx"
	"github.com/dmitrijs2005/gophgallery/internal/server/migrations"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "albums.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.UpContext(context.Background(), db, migrations.SQLiteDir))
	return db
}

func newSQLiteRepo(t *testing.T) (*SQLRepository, *sql.DB) {
	db := openSQLite(t)
	return NewSQLRepository(db, dbx.DialectSQLite), db
}

func mustCreate(t *testing.T, r *SQLRepository, name string, owner models.Owner, at time.Time) *models.Album {
	t.Helper()
	a := &models.Album{Name: name, Owner: owner, CreatedAt: at, UpdatedAt: at}
	require.NoError(t, r.Create(context.Background(), a))
	return a
}

func countRows(t *testing.T, db *sql.DB, albumID int64) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(DISTINCT file_name) FROM album_files WHERE album_id = ?`, albumID).Scan(&n))
	return n
}

func TestCreateGet(t *testing.T) {
	r, _ := newSQLiteRepo(t)
	ctx := context.Background()

	a := &models.Album{Name: "Trip", Description: "summer", Owner: models.UserOwner("u1"), CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, r.Create(ctx, a))
	require.NotZero(t, a.ID)

	got, err := r.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trip", got.Name)
	assert.Equal(t, "summer", got.Description)
	assert.Equal(t, models.UserOwner("u1"), got.Owner)
	assert.Equal(t, 0, got.FileCount)
	assert.True(t, got.CreatedAt.Equal(t0))

	_, err = r.Get(ctx, a.ID+100)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAddFiles_IdempotentAndCounted(t *testing.T) {
	r, db := newSQLiteRepo(t)
	ctx := context.Background()
	a := mustCreate(t, r, "Trip", models.SharedOwner(), t0)

	added, err := r.AddFiles(ctx, a.ID, []string{"a.jpg", "b.jpg", "a.jpg"}, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, added, 2)

	added, err = r.AddFiles(ctx, a.ID, []string{"a.jpg", "b.jpg"}, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, added)

	got, err := r.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.FileCount)
	assert.Equal(t, countRows(t, db, a.ID), got.FileCount)
	// no-op add leaves updated_at alone
	assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Minute)))
}

func TestAddFiles_UnknownAlbum(t *testing.T) {
	r, _ := newSQLiteRepo(t)
	_, err := r.AddFiles(context.Background(), 999, []string{"a.jpg"}, t0)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRemoveFiles(t *testing.T) {
	r, db := newSQLiteRepo(t)
	ctx := context.Background()
	a := mustCreate(t, r, "Trip", models.SharedOwner(), t0)

	_, err := r.AddFiles(ctx, a.ID, []string{"a.jpg", "b.jpg", "c.jpg"}, t0)
	require.NoError(t, err)

	removed, err := r.RemoveFiles(ctx, a.ID, []string{"a.jpg", "zzz.jpg"}, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = r.RemoveFiles(ctx, a.ID, []string{"a.jpg"}, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, removed)

	got, err := r.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.FileCount)
	assert.Equal(t, countRows(t, db, a.ID), got.FileCount)
	assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Hour)))

	_, err = r.RemoveFiles(ctx, 999, []string{"a.jpg"}, t0)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFiles_NewestFirst(t *testing.T) {
	r, _ := newSQLiteRepo(t)
	ctx := context.Background()
	a := mustCreate(t, r, "Trip", models.SharedOwner(), t0)

	_, err := r.AddFiles(ctx, a.ID, []string{"old.jpg"}, t0)
	require.NoError(t, err)
	_, err = r.AddFiles(ctx, a.ID, []string{"new.jpg"}, t0.Add(time.Second))
	require.NoError(t, err)

	files, err := r.Files(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"new.jpg", "old.jpg"}, files)

	files, err = r.Files(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRemoveFileEverywhere(t *testing.T) {
	r, db := newSQLiteRepo(t)
	ctx := context.Background()
	a := mustCreate(t, r, "A", models.SharedOwner(), t0)
	b := mustCreate(t, r, "B", models.SharedOwner(), t0)
	c := mustCreate(t, r, "C", models.SharedOwner(), t0)

	for _, id := range []int64{a.ID, b.ID} {
		_, err := r.AddFiles(ctx, id, []string{"x.jpg", "y.jpg"}, t0)
		require.NoError(t, err)
	}
	_, err := r.AddFiles(ctx, c.ID, []string{"y.jpg"}, t0)
	require.NoError(t, err)

	holders, err := r.AlbumsForFile(ctx, "x.jpg")
	require.NoError(t, err)
	require.Len(t, holders, 2)
	assert.Equal(t, "A", holders[0].Name)
	assert.Equal(t, "B", holders[1].Name)

	ok, err := r.RemoveFileEverywhere(ctx, "x.jpg", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	for _, id := range []int64{a.ID, b.ID, c.ID} {
		got, err := r.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, got.FileCount)
		assert.Equal(t, countRows(t, db, id), got.FileCount)
	}
	got, err := r.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(t0), "untouched album keeps updated_at")

	ok, err = r.RemoveFileEverywhere(ctx, "x.jpg", t0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete_CascadesAssociations(t *testing.T) {
	r, db := newSQLiteRepo(t)
	ctx := context.Background()
	a := mustCreate(t, r, "Trip", models.SharedOwner(), t0)
	_, err := r.AddFiles(ctx, a.ID, []string{"a.jpg"}, t0)
	require.NoError(t, err)

	ok, err := r.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM album_files`).Scan(&n))
	assert.Zero(t, n)

	holders, err := r.AlbumsForFile(ctx, "a.jpg")
	require.NoError(t, err)
	assert.Empty(t, holders)

	ok, err = r.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListSearchStats_Visibility(t *testing.T) {
	r, _ := newSQLiteRepo(t)
	ctx := context.Background()

	shared := mustCreate(t, r, "Holidays", models.SharedOwner(), t0)
	mine := mustCreate(t, r, "Trip 100%", models.UserOwner("u1"), t0.Add(time.Minute))
	theirs := mustCreate(t, r, "Secret trip", models.UserOwner("u2"), t0.Add(2*time.Minute))

	_, err := r.AddFiles(ctx, shared.ID, []string{"a", "b", "c"}, t0)
	require.NoError(t, err)
	_, err = r.AddFiles(ctx, mine.ID, []string{"a", "b"}, t0)
	require.NoError(t, err)
	_, err = r.AddFiles(ctx, theirs.ID, []string{"z"}, t0)
	require.NoError(t, err)

	all, err := r.List(ctx, models.AnyViewer())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	visible, err := r.List(ctx, models.ViewerFor("u1"))
	require.NoError(t, err)
	require.Len(t, visible, 2)
	for _, a := range visible {
		assert.NotEqual(t, theirs.ID, a.ID)
	}

	found, err := r.Search(ctx, "TRIP", models.ViewerFor("u1"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, mine.ID, found[0].ID)

	found, err = r.Search(ctx, "100%", models.AnyViewer())
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = r.Search(ctx, "%", models.AnyViewer())
	require.NoError(t, err)
	assert.Len(t, found, 1, "wildcards are matched literally")

	stats, err := r.Stats(ctx, models.ViewerFor("u1"))
	require.NoError(t, err)
	assert.Equal(t, models.AlbumStats{TotalAlbums: 2, TotalFiles: 5, AverageFilesPerAlbum: 3}, stats)

	stats, err = r.Stats(ctx, models.ViewerFor("nobody-owns-anything"))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalAlbums)
}

func TestStats_Empty(t *testing.T) {
	r, _ := newSQLiteRepo(t)
	stats, err := r.Stats(context.Background(), models.AnyViewer())
	require.NoError(t, err)
	assert.Equal(t, models.AlbumStats{}, stats)
}

func TestUpdate(t *testing.T) {
	r, _ := newSQLiteRepo(t)
	ctx := context.Background()
	a := mustCreate(t, r, "Trip", models.UserOwner("u1"), t0)

	a.Name = "Trip 2024"
	a.Owner = models.SharedOwner()
	a.Thumbnail = "thumb_a.jpg"
	a.UpdatedAt = t0.Add(time.Hour)
	require.NoError(t, r.Update(ctx, a))

	got, err := r.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trip 2024", got.Name)
	assert.True(t, got.Owner.IsShared())
	assert.Equal(t, "thumb_a.jpg", got.Thumbnail)

	a.ID = 999
	assert.ErrorIs(t, r.Update(ctx, a), common.ErrNotFound)
}

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLRepository(db, dbx.DialectPostgres), mock
}

func TestPostgres_CreateRebound(t *testing.T) {
	r, mock := newRepoWithMock(t)

	q := `(?s)^INSERT\s+INTO\s+albums\s*\(.*\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*0,\s*\$5,\s*\$6\)\s*RETURNING\s+id$`
	mock.ExpectQuery(q).
		WithArgs("Trip", sql.NullString{}, sql.NullString{String: "u1", Valid: true}, sql.NullString{}, t0.UnixMilli(), t0.UnixMilli()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	a := &models.Album{Name: "Trip", Owner: models.UserOwner("u1"), CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, r.Create(context.Background(), a))
	assert.Equal(t, int64(7), a.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectQuery(`INSERT INTO albums`).WillReturnError(errors.New("db down"))

	err := r.Create(context.Background(), &models.Album{Name: "x"})
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`failed to insert album: db down`), err.Error())
}

func TestAddFiles_RecountErrorPropagates(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT 1 FROM albums WHERE id = \$1 FOR UPDATE`).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO album_files`).WithArgs(int64(1), "a.jpg", t0.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE albums SET file_count`).WillReturnError(errors.New("boom"))

	_, err := r.AddFiles(context.Background(), 1, []string{"a.jpg"}, t0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to recount album 1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RemoveFileEverywhereLocksAlbumsInOrder(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectQuery(`DELETE FROM album_files WHERE file_name = \$1 RETURNING album_id`).WithArgs("x.jpg").
		WillReturnRows(sqlmock.NewRows([]string{"album_id"}).AddRow(int64(9)).AddRow(int64(3)))
	mock.ExpectQuery(`SELECT id FROM albums WHERE id IN \(\$1, ?\$2\) ORDER BY id FOR UPDATE`).WithArgs(int64(3), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)).AddRow(int64(9)))
	for _, id := range []int64{3, 9} {
		mock.ExpectExec(`UPDATE albums SET file_count`).WithArgs(id, t0.UnixMilli(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	ok, err := r.RemoveFileEverywhere(context.Background(), "x.jpg", t0)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_NoRowLocks(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	r := NewSQLRepository(db, dbx.DialectSQLite)

	mock.ExpectQuery(`^SELECT 1 FROM albums WHERE id = \?$`).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(`UPDATE albums SET file_count`).WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = r.AddFiles(context.Background(), 1, nil, t0)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_DBError(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectQuery(`SELECT .* FROM albums a WHERE a.id = \$1`).WillReturnError(errors.New("db err"))

	_, err := r.Get(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrNotFound))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "?, ?, ?", placeholders(3))
	assert.Equal(t, []string{"a", "b"}, dedupe([]string{"a", "", "b", "a"}))
	assert.Equal(t, `50\%\_\\`, escapeLike(`50%_\`))
}
