package services

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/cryptox"
	"github.com/dmitrijs2005/gophgallery/internal/dbx"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/server/metrics"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophgallery/internal/server/upload"
)

// Ingester stores and removes artifact files; *upload.Pipeline satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, f upload.File) (*upload.Result, error)
	Discard(a models.Artifact) error
	LocalPath(rel string) (string, error)
	PublicURL(rel string) (string, error)
	ReplaceExisting() bool
}

// Mirror receives a copy of every stored file. Failures are logged and
// never fail the operation.
type Mirror interface {
	Put(ctx context.Context, rel string, data []byte) error
	Delete(ctx context.Context, rel string) error
}

// ArtifactService registers ingested files and deletes them again, keeping
// album associations consistent with what is on disk.
type ArtifactService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ingester    Ingester
	mirror      Mirror
	logger      logging.Logger
	metrics     *metrics.Observer
	now         func() time.Time
}

type ArtifactOption func(*ArtifactService)

func WithMirror(m Mirror) ArtifactOption {
	return func(s *ArtifactService) { s.mirror = m }
}

func WithArtifactMetrics(o *metrics.Observer) ArtifactOption {
	return func(s *ArtifactService) { s.metrics = o }
}

func WithArtifactClock(now func() time.Time) ArtifactOption {
	return func(s *ArtifactService) { s.now = now }
}

func NewArtifactService(db *sql.DB, m repomanager.RepositoryManager, ingester Ingester, logger logging.Logger, opts ...ArtifactOption) *ArtifactService {
	s := &ArtifactService{
		db:          db,
		repomanager: m,
		ingester:    ingester,
		logger:      logger.With("module", "artifacts"),
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ingest stores f and records it in the registry. Names are unique across
// the whole registry, not only within one storage directory: a name already
// registered elsewhere is a conflict unless existing files may be replaced,
// in which case the older copy is removed. When the registry write fails the
// stored files are removed again.
func (s *ArtifactService) Ingest(ctx context.Context, f upload.File) (*upload.Result, error) {
	res, err := s.ingester.Ingest(ctx, f)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Artifacts(s.db)
	prev, err := repo.Get(ctx, res.Artifact.Name)
	switch {
	case errors.Is(err, common.ErrNotFound):
		prev = nil
	case err != nil:
		s.discard(ctx, res.Artifact)
		return nil, err
	case prev.RelPath != res.Artifact.RelPath && !s.ingester.ReplaceExisting():
		s.discard(ctx, res.Artifact)
		return nil, common.Conflict("ingest", res.Artifact.Name)
	}

	if err := repo.Put(ctx, &res.Artifact); err != nil {
		s.discard(ctx, res.Artifact)
		return nil, err
	}

	if prev != nil {
		s.dropReplaced(ctx, *prev, res.Artifact)
		res.Replaced = true
	}
	s.mirrorPut(ctx, res.Artifact, f.Data)
	return res, nil
}

func (s *ArtifactService) discard(ctx context.Context, a models.Artifact) {
	if err := s.ingester.Discard(a); err != nil {
		s.logger.Error(ctx, "failed to discard unregistered artifact", "name", a.Name, "error", err)
	}
}

// dropReplaced removes the files of prev that cur no longer occupies.
func (s *ArtifactService) dropReplaced(ctx context.Context, prev, cur models.Artifact) {
	stale := prev
	if stale.RelPath == cur.RelPath {
		stale.RelPath = ""
	}
	if stale.ThumbnailRelPath == cur.ThumbnailRelPath {
		stale.ThumbnailRelPath = ""
	}
	if stale.RelPath == "" && stale.ThumbnailRelPath == "" {
		return
	}
	s.discard(ctx, stale)
	s.mirrorDelete(ctx, stale)
}

func (s *ArtifactService) Get(ctx context.Context, name string) (*models.Artifact, error) {
	return s.repomanager.Artifacts(s.db).Get(ctx, name)
}

// Lookup returns the artifact with its public URLs.
func (s *ArtifactService) Lookup(ctx context.Context, name string) (*models.PublishedArtifact, error) {
	a, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.publish(a)
}

// List returns every registered artifact with its public URLs, newest first.
func (s *ArtifactService) List(ctx context.Context) ([]*models.PublishedArtifact, error) {
	all, err := s.repomanager.Artifacts(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.PublishedArtifact, 0, len(all))
	for _, a := range all {
		p, err := s.publish(a)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *ArtifactService) publish(a *models.Artifact) (*models.PublishedArtifact, error) {
	p := &models.PublishedArtifact{Artifact: *a}
	var err error
	if p.URL, err = s.ingester.PublicURL(a.RelPath); err != nil {
		return nil, err
	}
	if a.ThumbnailRelPath != "" {
		if p.ThumbnailURL, err = s.ingester.PublicURL(a.ThumbnailRelPath); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Delete removes the artifact if token matches the one issued at ingest.
func (s *ArtifactService) Delete(ctx context.Context, name, token string) (err error) {
	defer s.observe("delete_artifact", time.Now(), &err)

	a, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	if !cryptox.VerifyToken(token, a.TokenHash) {
		return common.NewError(common.ErrInvalidToken, "delete artifact", errors.New(name))
	}
	return s.remove(ctx, a)
}

// ForceDelete removes the artifact without a token.
func (s *ArtifactService) ForceDelete(ctx context.Context, name string) (err error) {
	defer s.observe("force_delete_artifact", time.Now(), &err)

	a, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	return s.remove(ctx, a)
}

// remove drops the registry row and album associations first; the files go
// only once that has committed.
func (s *ArtifactService) remove(ctx context.Context, a *models.Artifact) error {
	var detached bool
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Artifacts(tx).Delete(ctx, a.Name); err != nil {
			return err
		}
		var err error
		detached, err = s.repomanager.Albums(tx).RemoveFileEverywhere(ctx, a.Name, s.now().UTC().Truncate(time.Millisecond))
		return err
	})
	if err != nil {
		return err
	}

	if err := s.ingester.Discard(*a); err != nil {
		s.logger.Error(ctx, "failed to remove files of deleted artifact", "name", a.Name, "error", err)
	}
	s.mirrorDelete(ctx, *a)
	s.logger.Info(ctx, "artifact deleted", "name", a.Name, "detached_from_albums", detached)
	return nil
}

func (s *ArtifactService) mirrorPut(ctx context.Context, a models.Artifact, data []byte) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Put(ctx, a.RelPath, data); err != nil {
		s.logger.Warn(ctx, "mirror upload failed", "name", a.Name, "error", err)
	}
	if a.ThumbnailRelPath == "" {
		return
	}

	local, err := s.ingester.LocalPath(a.ThumbnailRelPath)
	if err == nil {
		var thumb []byte
		if thumb, err = os.ReadFile(local); err == nil {
			err = s.mirror.Put(ctx, a.ThumbnailRelPath, thumb)
		}
	}
	if err != nil {
		s.logger.Warn(ctx, "mirror thumbnail upload failed", "name", a.Name, "error", err)
	}
}

func (s *ArtifactService) mirrorDelete(ctx context.Context, a models.Artifact) {
	if s.mirror == nil {
		return
	}
	for _, rel := range []string{a.RelPath, a.ThumbnailRelPath} {
		if rel == "" {
			continue
		}
		if err := s.mirror.Delete(ctx, rel); err != nil {
			s.logger.Warn(ctx, "mirror delete failed", "name", a.Name, "key", rel, "error", err)
		}
	}
}

func (s *ArtifactService) observe(op string, start time.Time, err *error) {
	s.metrics.Record(op, time.Since(start), *err)
}
