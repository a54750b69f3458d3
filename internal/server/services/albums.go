package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/dbx"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/dmitrijs2005/gophgallery/internal/server/metrics"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/repomanager"
	"golang.org/x/sync/errgroup"
)

const (
	maxAlbumNameLength = 255
	batchConcurrency   = 4
)

// AlbumService owns albums and their file associations. Every association
// change runs in a transaction together with the file_count rebuild, so a
// stale count is never visible to a concurrent reader.
type AlbumService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	metrics     *metrics.Observer
	now         func() time.Time
}

type AlbumOption func(*AlbumService)

func WithAlbumClock(now func() time.Time) AlbumOption {
	return func(s *AlbumService) { s.now = now }
}

func WithAlbumMetrics(o *metrics.Observer) AlbumOption {
	return func(s *AlbumService) { s.metrics = o }
}

func NewAlbumService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, opts ...AlbumOption) *AlbumService {
	s := &AlbumService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "albums"),
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *AlbumService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *AlbumService) CreateAlbum(ctx context.Context, in models.NewAlbum) (a *models.Album, err error) {
	defer s.observe("create_album", time.Now(), &err)

	name, err := validateAlbumName(in.Name)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	a = &models.Album{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Owner:       in.Owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repomanager.Albums(s.db).Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "album created", "id", a.ID, "owner", a.Owner.String())
	return a, nil
}

func (s *AlbumService) GetAlbum(ctx context.Context, id int64) (*models.Album, error) {
	return s.repomanager.Albums(s.db).Get(ctx, id)
}

func (s *AlbumService) ListAlbums(ctx context.Context, v models.Viewer) ([]*models.Album, error) {
	return s.repomanager.Albums(s.db).List(ctx, v)
}

func (s *AlbumService) SearchAlbums(ctx context.Context, query string, v models.Viewer) ([]*models.Album, error) {
	if strings.TrimSpace(query) == "" {
		return s.ListAlbums(ctx, v)
	}
	return s.repomanager.Albums(s.db).Search(ctx, query, v)
}

func (s *AlbumService) GetStats(ctx context.Context, v models.Viewer) (models.AlbumStats, error) {
	return s.repomanager.Albums(s.db).Stats(ctx, v)
}

// UpdateAlbum applies the non-nil fields of p. UpdatedAt moves even when
// the patch is empty.
func (s *AlbumService) UpdateAlbum(ctx context.Context, id int64, p models.AlbumPatch) (a *models.Album, err error) {
	defer s.observe("update_album", time.Now(), &err)

	if p.Name != nil {
		name, err := validateAlbumName(*p.Name)
		if err != nil {
			return nil, err
		}
		p.Name = &name
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Albums(tx)

		current, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if p.Name != nil {
			current.Name = *p.Name
		}
		if p.Description != nil {
			current.Description = strings.TrimSpace(*p.Description)
		}
		if p.Thumbnail != nil {
			current.Thumbnail = *p.Thumbnail
		}
		if p.Owner != nil {
			current.Owner = *p.Owner
		}
		current.UpdatedAt = s.timestamp()

		if err := repo.Update(ctx, current); err != nil {
			return err
		}
		a = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AlbumService) DeleteAlbum(ctx context.Context, id int64) (ok bool, err error) {
	defer s.observe("delete_album", time.Now(), &err)

	ok, err = s.repomanager.Albums(s.db).Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		s.logger.Info(ctx, "album deleted", "id", id)
	}
	return ok, nil
}

// AddFiles associates names with the album. Names already present are
// skipped; only the associations actually created are returned.
func (s *AlbumService) AddFiles(ctx context.Context, id int64, names []string) (created []models.AlbumFile, err error) {
	defer s.observe("add_files", time.Now(), &err)

	if err := validateFileNames("add files", names); err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		created, err = s.repomanager.Albums(tx).AddFiles(ctx, id, names, s.timestamp())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "files added to album", "id", id, "requested", len(names), "created", len(created))
	return created, nil
}

func (s *AlbumService) RemoveFiles(ctx context.Context, id int64, names []string) (removed bool, err error) {
	defer s.observe("remove_files", time.Now(), &err)

	if err := validateFileNames("remove files", names); err != nil {
		return false, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		removed, err = s.repomanager.Albums(tx).RemoveFiles(ctx, id, names, s.timestamp())
		return err
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (s *AlbumService) GetAlbumFiles(ctx context.Context, id int64) ([]string, error) {
	return s.repomanager.Albums(s.db).Files(ctx, id)
}

func (s *AlbumService) GetFileAlbums(ctx context.Context, name string) ([]*models.Album, error) {
	return s.repomanager.Albums(s.db).AlbumsForFile(ctx, name)
}

// RemoveFileFromAllAlbums detaches name from every album and rebuilds each
// affected count.
func (s *AlbumService) RemoveFileFromAllAlbums(ctx context.Context, name string) (removed bool, err error) {
	defer s.observe("remove_file_everywhere", time.Now(), &err)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		removed, err = s.repomanager.Albums(tx).RemoveFileEverywhere(ctx, name, s.timestamp())
		return err
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// AddFilesToAlbums runs AddFiles for each album independently. The returned
// slice is in the order of ids; a failure for one album does not affect the
// others and is reported in its result.
func (s *AlbumService) AddFilesToAlbums(ctx context.Context, ids []int64, names []string) []models.AlbumBatchResult {
	return s.batch(ctx, ids, func(ctx context.Context, id int64, r *models.AlbumBatchResult) {
		r.Added, r.Err = s.AddFiles(ctx, id, names)
	})
}

func (s *AlbumService) RemoveFilesFromAlbums(ctx context.Context, ids []int64, names []string) []models.AlbumBatchResult {
	return s.batch(ctx, ids, func(ctx context.Context, id int64, r *models.AlbumBatchResult) {
		r.Removed, r.Err = s.RemoveFiles(ctx, id, names)
	})
}

func (s *AlbumService) batch(ctx context.Context, ids []int64, fn func(context.Context, int64, *models.AlbumBatchResult)) []models.AlbumBatchResult {
	results := make([]models.AlbumBatchResult, len(ids))

	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i, id := range ids {
		results[i].AlbumID = id
		g.Go(func() error {
			fn(ctx, id, &results[i])
			if results[i].Err != nil {
				s.logger.Warn(ctx, "batch operation failed for album", "id", id, "error", results[i].Err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *AlbumService) observe(op string, start time.Time, err *error) {
	s.metrics.Record(op, time.Since(start), *err)
}

func validateAlbumName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", common.Validation("album", "name is required")
	}
	if len(name) > maxAlbumNameLength {
		return "", common.Validation("album", "name is longer than %d bytes", maxAlbumNameLength)
	}
	return name, nil
}

func validateFileNames(op string, names []string) error {
	if len(names) == 0 {
		return common.Validation(op, "no file names given")
	}
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return common.Validation(op, "empty file name")
		}
		if strings.ContainsAny(n, `/\`) {
			return common.Validation(op, "invalid file name %q", n)
		}
	}
	return nil
}
