package cli

import (
	"bufio"
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/client"
	"github.com/dmitrijs2005/gophgallery/internal/client/config"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories/tokens"
	"github.com/dmitrijs2005/gophgallery/internal/client/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	client.Client

	files   []models.Artifact
	albums  []models.Album
	album   map[int64][]string
	created []string
	deleted []string
	pingErr error
}

func (s *stubClient) Ping(context.Context) error { return s.pingErr }

func (s *stubClient) ListFiles(context.Context) ([]models.Artifact, error) {
	return slices.Clone(s.files), nil
}

func (s *stubClient) ListAlbums(context.Context) ([]models.Album, error) { return s.albums, nil }

func (s *stubClient) CreateAlbum(_ context.Context, name, _ string, shared bool) (*models.Album, error) {
	s.created = append(s.created, name)
	a := models.Album{ID: int64(len(s.albums) + 1), Name: name}
	if !shared {
		a.OwnerID = "alice"
	}
	s.albums = append(s.albums, a)
	return &a, nil
}

func (s *stubClient) AddFilesToAlbums(_ context.Context, ids []int64, names []string) ([]models.BatchResult, error) {
	out := make([]models.BatchResult, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.album[id]; !ok {
			out = append(out, models.BatchResult{AlbumID: id, Message: "album not found"})
			continue
		}
		s.album[id] = append(s.album[id], names...)
		out = append(out, models.BatchResult{AlbumID: id, Success: true})
	}
	return out, nil
}

func (s *stubClient) Upload(_ context.Context, name string, data []byte) (*models.Upload, error) {
	a := models.Artifact{Name: name, Size: int64(len(data)), URL: "https://img.example.com/files/" + name}
	s.files = append(s.files, a)
	return &models.Upload{URL: a.URL, DeletionToken: "tok", Artifact: a}, nil
}

func (s *stubClient) DeleteFile(_ context.Context, name, _ string) error {
	s.deleted = append(s.deleted, name)
	s.files = slices.DeleteFunc(s.files, func(a models.Artifact) bool { return a.Name == name })
	return nil
}

func newTestApp(t *testing.T, stub *stubClient, input string) (*App, *bytes.Buffer) {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var out bytes.Buffer
	return &App{
		config:  &config.Config{OnlineCheckInterval: 10 * time.Millisecond},
		db:      db,
		api:     stub,
		gallery: services.NewGalleryService(stub, tokens.NewSQLiteRepository(db)),
		reader:  bufio.NewReader(strings.NewReader(input)),
		out:     &out,
	}, &out
}

func files(names ...string) []models.Artifact {
	out := make([]models.Artifact, len(names))
	for i, n := range names {
		out[i] = models.Artifact{Name: n, Size: 2048}
	}
	return out
}

func TestSetMode_ChangesAndLogsOnce(t *testing.T) {
	app := &App{}
	var buf bytes.Buffer

	old := log.Default().Writer()
	defer log.SetOutput(old)
	log.SetOutput(&buf)

	app.setMode(ModeOnline)
	assert.Equal(t, ModeOnline, app.Mode)
	assert.NotEmpty(t, buf.String())

	buf.Reset()
	app.setMode(ModeOnline)
	assert.Empty(t, buf.String())

	app.setMode(ModeOffline)
	assert.Equal(t, ModeOffline, app.Mode)
	assert.NotEmpty(t, buf.String())
}

func TestStatusAndSelectionCommands(t *testing.T) {
	stub := &stubClient{files: files("a", "b", "c", "d")}
	app, out := newTestApp(t, stub, "")
	ctx := context.Background()
	require.NoError(t, app.gallery.Refresh(ctx))

	assert.Equal(t, "(all)", app.getStatus())

	require.NoError(t, app.Select(ctx, []string{"b"}))
	require.NoError(t, app.Extend(ctx, []string{"d"}))
	require.NoError(t, app.Toggle(ctx, []string{"c"}))
	app.Mode = ModeOnline
	assert.Equal(t, "(all 2 selected online)", app.getStatus())

	require.NoError(t, app.Selected(ctx))
	assert.Contains(t, out.String(), "2 files (multi mode): b, d")

	out.Reset()
	require.NoError(t, app.List(ctx))
	assert.Contains(t, out.String(), "* b")
	assert.Contains(t, out.String(), "  a")
	assert.Contains(t, out.String(), "2.0 KiB")

	require.NoError(t, app.SelectAll(ctx))
	assert.Equal(t, 4, app.gallery.Selection().SelectedCount())
	require.NoError(t, app.Clear(ctx))
	assert.False(t, app.gallery.Selection().HasSelection())

	assert.ErrorIs(t, app.Select(ctx, nil), errUsage)
}

func TestAlbumCommands(t *testing.T) {
	stub := &stubClient{files: files("a", "b"), album: map[int64][]string{1: nil}}
	app, out := newTestApp(t, stub, "Trip\nsummer\ny\n")
	ctx := context.Background()
	require.NoError(t, app.gallery.Refresh(ctx))

	require.NoError(t, app.NewAlbum(ctx))
	assert.Equal(t, []string{"Trip"}, stub.created)
	assert.Contains(t, out.String(), `Created album 1 "Trip"`)

	out.Reset()
	require.NoError(t, app.Albums(ctx))
	assert.Contains(t, out.String(), "Trip")
	assert.Contains(t, out.String(), "[shared]")

	require.NoError(t, app.SelectAll(ctx))
	out.Reset()
	require.NoError(t, app.AddTo(ctx, []string{"1", "5"}))
	assert.Contains(t, out.String(), "album 1: ok")
	assert.Contains(t, out.String(), "album 5: album not found")
	assert.Equal(t, []string{"a", "b"}, stub.album[1])

	assert.Error(t, app.AddTo(ctx, []string{"x"}))
	assert.Error(t, app.Open(ctx, []string{"0"}))
	assert.ErrorIs(t, app.RemoveFromAlbum(ctx), services.ErrNoAlbumOpen)
}

func TestUploadAndDeleteCommands(t *testing.T) {
	stub := &stubClient{files: files("theirs.png")}
	app, out := newTestApp(t, stub, "n\ny\n")
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "mine.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))

	require.NoError(t, app.Upload(ctx, []string{path}))
	assert.Contains(t, out.String(), "Uploaded mine.png")
	assert.Len(t, app.gallery.Visible(), 2)

	require.NoError(t, app.SelectAll(ctx))

	// declined
	require.NoError(t, app.Delete(ctx))
	assert.Empty(t, stub.deleted)

	out.Reset()
	require.NoError(t, app.Delete(ctx))
	assert.Equal(t, []string{"mine.png"}, stub.deleted)
	assert.Contains(t, out.String(), "deleted mine.png")
	assert.Contains(t, out.String(), "skipped theirs.png")

	require.NoError(t, app.Clear(ctx))
	assert.ErrorIs(t, app.Delete(ctx), services.ErrEmptySelection)
}

func TestOnlineStatusWatcher(t *testing.T) {
	stub := &stubClient{}
	app, _ := newTestApp(t, stub, "")

	old := log.Default().Writer()
	defer log.SetOutput(old)
	log.SetOutput(&bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	app.StartOnlineStatusWatcher(ctx, 10*time.Millisecond)

	assert.Equal(t, ModeOnline, app.Mode)
}

func TestPluralizeAndHumanSize(t *testing.T) {
	assert.Equal(t, "1 file", pluralize(1, "file"))
	assert.Equal(t, "3 files", pluralize(3, "file"))
	assert.Equal(t, "3 selected", pluralize(3, "selected"))
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.5 MiB", humanSize(3<<19))
}
