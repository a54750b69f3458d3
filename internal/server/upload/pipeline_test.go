package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/cryptox"
	"github.com/dmitrijs2005/gophgallery/internal/filex"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/server/config"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
	"github.com/dmitrijs2005/gophgallery/internal/server/thumbnail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingThumbnailer struct{}

func (failingThumbnailer) Generate([]byte, config.Thumbnail, string) (*thumbnail.Result, error) {
	return nil, common.NewError(common.ErrThumbnailEncode, "encode", errors.New("corrupt"))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.PublicDomain = "https://img.example.com"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "uploads")
	cfg.Storage.Permissions.Files = filex.Mode(0o640)
	return cfg
}

func sequence(values ...string) func() string {
	i := 0
	return func() string {
		v := values[i%len(values)]
		i++
		return v
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewPipeline(cfg, logging.Nop(), opts...)
	require.NoError(t, err)
	return p
}

func TestIngest_StoresImageWithThumbnail(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg, WithNameResolver(NewNameResolver(WithRandom(sequence("aaaa")))))
	cfg.Upload.FilenameTemplate = "{original}-{random}"

	res, err := p.Ingest(context.Background(), File{Name: "Beach.PNG", Data: pngBytes(t, 640, 480)})
	require.NoError(t, err)
	require.NoError(t, res.ThumbnailErr)

	assert.Equal(t, "beach-aaaa.png", res.Artifact.Name)
	assert.Equal(t, "beach-aaaa.png", res.Artifact.RelPath)
	assert.Equal(t, models.ClassImage, res.Artifact.Class)
	assert.Equal(t, "https://img.example.com/files/beach-aaaa.png", res.ArtifactURL)

	assert.Equal(t, "thumb_beach-aaaa.png.png", res.Artifact.ThumbnailName)
	assert.Equal(t, "thumbs/thumb_beach-aaaa.png.png", res.Artifact.ThumbnailRelPath)
	assert.Equal(t, "https://img.example.com/files/thumbs/thumb_beach-aaaa.png.png", res.ThumbnailURL)

	info, err := os.Stat(filepath.Join(cfg.Storage.Path, "beach-aaaa.png"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	_, err = os.Stat(filepath.Join(cfg.Storage.Path, "thumbs", "thumb_beach-aaaa.png.png"))
	require.NoError(t, err)

	assert.Len(t, res.DeletionToken, 2*common.DeletionTokenSize)
	assert.True(t, cryptox.VerifyToken(res.DeletionToken, res.Artifact.TokenHash))
}

func TestIngest_ConflictPolicy(t *testing.T) {
	ctx := context.Background()
	data := []byte("some notes")

	t.Run("preserved names collide", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Upload.PreserveFilenames = true
		p := newTestPipeline(t, cfg)

		_, err := p.Ingest(ctx, File{Name: "notes.txt", Data: data})
		require.NoError(t, err)
		_, err = p.Ingest(ctx, File{Name: "notes.txt", Data: data})
		assert.ErrorIs(t, err, common.ErrConflict)
	})

	t.Run("random template avoids collision", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Upload.FilenameTemplate = "{original}-{random}"
		p := newTestPipeline(t, cfg)

		first, err := p.Ingest(ctx, File{Name: "notes.txt", Data: data})
		require.NoError(t, err)
		second, err := p.Ingest(ctx, File{Name: "notes.txt", Data: data})
		require.NoError(t, err)
		assert.NotEqual(t, first.Artifact.Name, second.Artifact.Name)
	})

	t.Run("replace existing overwrites", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Upload.PreserveFilenames = true
		cfg.Storage.ReplaceExisting = true
		p := newTestPipeline(t, cfg)

		first, err := p.Ingest(ctx, File{Name: "notes.txt", Data: data})
		require.NoError(t, err)
		second, err := p.Ingest(ctx, File{Name: "notes.txt", Data: []byte("newer notes")})
		require.NoError(t, err)
		assert.True(t, second.Replaced)
		assert.NotEqual(t, first.DeletionToken, second.DeletionToken)

		got, err := os.ReadFile(filepath.Join(cfg.Storage.Path, "notes.txt"))
		require.NoError(t, err)
		assert.Equal(t, "newer notes", string(got))
	})
}

func TestIngest_ThumbnailFailureIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg, WithThumbnailer(failingThumbnailer{}))

	res, err := p.Ingest(context.Background(), File{Name: "a.png", Data: pngBytes(t, 10, 10)})
	require.NoError(t, err)
	assert.ErrorIs(t, res.ThumbnailErr, common.ErrThumbnailEncode)
	assert.Empty(t, res.ThumbnailURL)
	assert.Empty(t, res.Artifact.ThumbnailName)
}

func TestIngest_NoThumbnailForDocumentsOrWhenDisabled(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)

	res, err := p.Ingest(context.Background(), File{Name: "a.txt", Data: []byte("hello there")})
	require.NoError(t, err)
	assert.Empty(t, res.Artifact.ThumbnailName)
	assert.Equal(t, models.ClassDocument, res.Artifact.Class)

	cfg.Thumbnail.Enabled = false
	res, err = p.Ingest(context.Background(), File{Name: "b.png", Data: pngBytes(t, 10, 10)})
	require.NoError(t, err)
	assert.Empty(t, res.ThumbnailURL)
}

func TestIngest_ByDateLayout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Structure = config.StructureByDate
	now := func() time.Time { return time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC) }
	p := newTestPipeline(t, cfg, WithNow(now))

	res, err := p.Ingest(context.Background(), File{Name: "a.txt", Data: []byte("hello there")})
	require.NoError(t, err)
	assert.Equal(t, "2024/06/02/"+res.Artifact.Name, res.Artifact.RelPath)
	assert.Equal(t, "https://img.example.com/files/2024/06/02/"+res.Artifact.Name, res.ArtifactURL)
	assert.True(t, res.Artifact.CreatedAt.Equal(now()))
}

func TestIngest_ThumbnailsDoNotCollide(t *testing.T) {
	ctx := context.Background()

	t.Run("same stem different extension", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Upload.PreserveFilenames = true
		cfg.Thumbnail.PreserveFormat = false
		cfg.Thumbnail.Format = config.FormatJPEG
		p := newTestPipeline(t, cfg)

		a, err := p.Ingest(ctx, File{Name: "pic.png", Data: pngBytes(t, 40, 30)})
		require.NoError(t, err)
		b, err := p.Ingest(ctx, File{Name: "pic.jpg", Data: jpegBytes(t, 40, 30)})
		require.NoError(t, err)

		require.NotEmpty(t, a.Artifact.ThumbnailRelPath)
		require.NotEmpty(t, b.Artifact.ThumbnailRelPath)
		assert.NotEqual(t, a.Artifact.ThumbnailRelPath, b.Artifact.ThumbnailRelPath)

		require.NoError(t, p.Discard(a.Artifact))
		local, err := p.LocalPath(b.Artifact.ThumbnailRelPath)
		require.NoError(t, err)
		_, err = os.Stat(local)
		assert.NoError(t, err)
	})

	t.Run("same name on different days", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Upload.PreserveFilenames = true
		cfg.Storage.Structure = config.StructureByDate
		now := time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC)
		p := newTestPipeline(t, cfg, WithNow(func() time.Time { return now }))

		a, err := p.Ingest(ctx, File{Name: "pic.png", Data: pngBytes(t, 40, 30)})
		require.NoError(t, err)
		now = now.Add(48 * time.Hour)
		b, err := p.Ingest(ctx, File{Name: "pic.png", Data: pngBytes(t, 40, 30)})
		require.NoError(t, err)

		assert.Equal(t, "thumbs/2024/06/02/thumb_pic.png.png", a.Artifact.ThumbnailRelPath)
		assert.Equal(t, "thumbs/2024/06/04/thumb_pic.png.png", b.Artifact.ThumbnailRelPath)
	})
}

func TestIngest_DiscardsFilesWhenURLFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upload.PreserveFilenames = true
	p := newTestPipeline(t, cfg)
	cfg.PublicDomain = "://no-scheme"

	_, err := p.Ingest(context.Background(), File{Name: "pic.png", Data: pngBytes(t, 40, 30)})
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = os.Stat(filepath.Join(cfg.Storage.Path, "pic.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(filepath.Join(cfg.Storage.Path, "thumbs", ThumbnailName("pic.png", ".png")))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIngest_ValidationAndCancel(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)

	_, err := p.Ingest(context.Background(), File{Name: "empty.txt"})
	assert.ErrorIs(t, err, common.ErrValidation)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Ingest(ctx, File{Name: "a.txt", Data: []byte("hello")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiscard(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)

	res, err := p.Ingest(context.Background(), File{Name: "a.png", Data: pngBytes(t, 20, 20)})
	require.NoError(t, err)
	require.NotEmpty(t, res.Artifact.ThumbnailRelPath)

	require.NoError(t, p.Discard(res.Artifact))
	for _, rel := range []string{res.Artifact.RelPath, res.Artifact.ThumbnailRelPath} {
		_, err := os.Stat(filepath.Join(cfg.Storage.Path, filepath.FromSlash(rel)))
		assert.True(t, os.IsNotExist(err))
	}

	require.NoError(t, p.Discard(res.Artifact), "second discard is a no-op")

	err = p.Discard(models.Artifact{RelPath: "../outside.txt"})
	assert.ErrorIs(t, err, common.ErrValidation)
}
