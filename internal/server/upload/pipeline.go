package upload

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/cryptox"
	"github.com/dmitrijs2005/gophgallery/internal/filex"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/server/config"
	"github.com/dmitrijs2005/gophgallery/internal/server/metrics"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
	"github.com/dmitrijs2005/gophgallery/internal/server/thumbnail"
)

// File is an inbound upload. Name is the client-supplied file name.
type File struct {
	Name string
	Data []byte
}

// Result is what the caller hands back to the uploader. DeletionToken is
// only ever returned here.
type Result struct {
	Artifact      models.Artifact
	ArtifactURL   string
	ThumbnailURL  string
	DeletionToken string
	// ThumbnailErr is set when a thumbnail was attempted and failed; the
	// artifact itself is stored.
	ThumbnailErr error
	Replaced     bool
}

// Thumbnailer renders derivatives; *thumbnail.Generator satisfies it.
type Thumbnailer interface {
	Generate(src []byte, cfg config.Thumbnail, ext string) (*thumbnail.Result, error)
}

// Pipeline runs one ingest at a time per call and keeps no state between
// calls, so concurrent ingests of different names need no coordination.
//
// Ingesting the same name concurrently is racy: the existence check and the
// write are separate filesystem operations. Callers that need strict
// collision guarantees must serialize same-name ingests.
type Pipeline struct {
	cfg       *config.Config
	names     *NameResolver
	paths     *PathResolver
	validator *Validator
	thumbs    Thumbnailer
	logger    logging.Logger
	metrics   *metrics.Observer
	now       func() time.Time
}

type Option func(*Pipeline)

func WithNameResolver(r *NameResolver) Option {
	return func(p *Pipeline) { p.names = r }
}

func WithThumbnailer(t Thumbnailer) Option {
	return func(p *Pipeline) { p.thumbs = t }
}

func WithMetrics(o *metrics.Observer) Option {
	return func(p *Pipeline) { p.metrics = o }
}

func WithNow(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(cfg *config.Config, logger logging.Logger, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:       cfg,
		validator: NewValidator(cfg.Upload),
		thumbs:    thumbnail.NewGenerator(),
		logger:    logger.With("module", "upload"),
		now:       time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	if p.names == nil {
		p.names = NewNameResolver(WithClock(p.now))
	}

	paths, err := NewPathResolver(cfg.Storage, p.now)
	if err != nil {
		return nil, err
	}
	p.paths = paths
	return p, nil
}

// Ingest validates f, stores it and, for images, its thumbnail.
func (p *Pipeline) Ingest(ctx context.Context, f File) (res *Result, err error) {
	start := time.Now()
	defer func() { p.metrics.RecordIngest(time.Since(start), int64(len(f.Data)), err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	class, err := p.validator.Validate(f.Name, f.Data)
	if err != nil {
		return nil, err
	}

	storage := p.cfg.Storage
	dir, err := p.paths.Resolve(storage.Structure, storage.Path, f.Name)
	if err != nil {
		return nil, err
	}

	name := p.names.Resolve(f.Name, p.cfg.Upload.FilenameTemplate, p.cfg.Upload.PreserveFilenames)
	target := filepath.Join(dir, name)

	exists, err := filex.Exists(target)
	if err != nil {
		return nil, common.StorageIO("ingest", err)
	}
	if exists && !storage.ReplaceExisting {
		return nil, common.Conflict("ingest", name)
	}

	if err := filex.WriteFile(target, f.Data, storage.Permissions.Files.Perm()); err != nil {
		return nil, common.StorageIO("ingest", err)
	}

	rel, err := p.relPath(target)
	if err != nil {
		return nil, err
	}

	res = &Result{
		Replaced: exists,
		Artifact: models.Artifact{
			Name:      name,
			RelPath:   rel,
			Size:      int64(len(f.Data)),
			Class:     class,
			CreatedAt: p.now().UTC(),
		},
	}

	if class == models.ClassImage && p.cfg.Thumbnail.Enabled {
		p.storeThumbnail(ctx, res, f.Data)
	} else {
		p.metrics.RecordThumbnail(false, nil)
	}

	if err := p.finish(res); err != nil {
		if derr := p.Discard(res.Artifact); derr != nil {
			p.logger.Error(ctx, "failed to discard artifact", "name", name, "error", derr)
		}
		return nil, err
	}

	p.logger.Info(ctx, "artifact stored", "name", name, "size", res.Artifact.Size, "class", class, "replaced", exists)
	return res, nil
}

// finish issues the deletion token and composes the public URLs.
func (p *Pipeline) finish(res *Result) (err error) {
	token, err := cryptox.NewDeletionToken()
	if err != nil {
		return err
	}
	res.DeletionToken = token
	res.Artifact.TokenHash = cryptox.HashToken(token)

	if res.ArtifactURL, err = p.PublicURL(res.Artifact.RelPath); err != nil {
		return err
	}
	if res.Artifact.ThumbnailRelPath != "" {
		if res.ThumbnailURL, err = p.PublicURL(res.Artifact.ThumbnailRelPath); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceExisting reports whether an ingest may take over a name that is
// already stored.
func (p *Pipeline) ReplaceExisting() bool {
	return p.cfg.Storage.ReplaceExisting
}

// storeThumbnail never fails the ingest; problems are logged and recorded
// in res.ThumbnailErr.
func (p *Pipeline) storeThumbnail(ctx context.Context, res *Result, data []byte) {
	name := res.Artifact.Name

	thumb, err := p.thumbs.Generate(data, p.cfg.Thumbnail, filepath.Ext(name))
	if err == nil {
		err = p.writeThumbnail(res, thumb)
	}
	p.metrics.RecordThumbnail(err == nil, err)

	if err != nil {
		res.ThumbnailErr = err
		p.logger.Warn(ctx, "thumbnail not generated", "name", name, "error", err)
	}
}

// writeThumbnail stores the derivative below the thumbnails path in the same
// relative directory as the artifact. The name keeps the artifact's full
// name so sources differing only in extension get distinct thumbnails.
func (p *Pipeline) writeThumbnail(res *Result, thumb *thumbnail.Result) error {
	storage := p.cfg.Storage
	base := filepath.Join(storage.Path, storage.ThumbnailsPath)
	dir, err := filex.EnsureSubDirs(base, filepath.Dir(filepath.FromSlash(res.Artifact.RelPath)), storage.Permissions.Directories.Perm())
	if err != nil {
		return common.StorageIO("thumbnail", err)
	}

	thumbName := ThumbnailName(res.Artifact.Name, thumb.Ext)
	target := filepath.Join(dir, thumbName)
	if err := filex.WriteFile(target, thumb.Data, storage.Permissions.Files.Perm()); err != nil {
		return common.StorageIO("thumbnail", err)
	}

	rel, err := p.relPath(target)
	if err != nil {
		return err
	}
	res.Artifact.ThumbnailName = thumbName
	res.Artifact.ThumbnailRelPath = rel
	return nil
}

// Discard removes an artifact's file and thumbnail from disk. Missing files
// are ignored.
func (p *Pipeline) Discard(a models.Artifact) error {
	for _, rel := range []string{a.RelPath, a.ThumbnailRelPath} {
		if rel == "" {
			continue
		}
		full, err := p.LocalPath(rel)
		if err != nil {
			return err
		}
		if err := filex.RemoveIfExists(full); err != nil {
			return common.StorageIO("discard", err)
		}
	}
	return nil
}

// LocalPath maps a slash-separated path below the storage root onto the
// filesystem.
func (p *Pipeline) LocalPath(rel string) (string, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", common.Validation("local path", "%q is outside the storage root", rel)
	}
	return filepath.Join(p.cfg.Storage.Path, local), nil
}

// PublicURL composes the public URL of a path below the storage root.
func (p *Pipeline) PublicURL(rel string) (string, error) {
	u, err := url.JoinPath(p.cfg.PublicDomain, common.FilesRoute, rel)
	if err != nil {
		return "", common.Validation("public url", "%v", err)
	}
	return u, nil
}

// ThumbnailName is the file name of the derivative of the artifact name
// rendered with extension ext.
func ThumbnailName(name, ext string) string {
	return common.ThumbnailPrefix + name + ext
}

func (p *Pipeline) relPath(target string) (string, error) {
	rel, err := filepath.Rel(p.cfg.Storage.Path, target)
	if err != nil {
		return "", common.StorageIO("ingest", err)
	}
	return path.Clean(filepath.ToSlash(rel)), nil
}
