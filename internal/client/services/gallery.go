// Package services holds the client-side use cases behind the CLI: browsing
// the gallery, selecting files and acting on the selection.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/client"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories/tokens"
	"github.com/dmitrijs2005/gophgallery/internal/client/selection"
	"github.com/dmitrijs2005/gophgallery/internal/common"
)

var (
	ErrEmptySelection = errors.New("nothing selected")
	ErrNoAlbumOpen    = errors.New("no album open")
)

// AllFiles is the view id of the unfiltered file list.
const AllFiles int64 = 0

// GalleryService keeps the current view (all files or one album) and the
// selection over it.
type GalleryService struct {
	client client.Client
	tokens tokens.Repository
	sel    *selection.Controller
	album  int64
	now    func() time.Time
}

func NewGalleryService(c client.Client, t tokens.Repository) *GalleryService {
	return &GalleryService{
		client: c,
		tokens: t,
		sel:    selection.NewController(nil),
		now:    time.Now,
	}
}

func (s *GalleryService) Selection() *selection.Controller { return s.sel }

func (s *GalleryService) CurrentAlbum() int64 { return s.album }

func (s *GalleryService) Visible() []models.Artifact { return s.sel.Visible() }

// Open switches the view to albumID, or to every file for AllFiles. The
// selection is kept; names outside the new view stay selected but are not
// part of SelectedFilesData.
func (s *GalleryService) Open(ctx context.Context, albumID int64) error {
	prev := s.album
	s.album = albumID
	if err := s.Refresh(ctx); err != nil {
		s.album = prev
		return err
	}
	return nil
}

// Refresh reloads the current view from the server.
func (s *GalleryService) Refresh(ctx context.Context) error {
	if s.album == AllFiles {
		files, err := s.client.ListFiles(ctx)
		if err != nil {
			return err
		}
		s.sel.SetVisible(files)
		return nil
	}

	names, err := s.client.AlbumFiles(ctx, s.album)
	if err != nil {
		return err
	}
	files := make([]models.Artifact, 0, len(names))
	for _, n := range names {
		a, err := s.client.GetFile(ctx, n)
		if errors.Is(err, common.ErrNotFound) {
			files = append(files, models.Artifact{Name: n})
			continue
		}
		if err != nil {
			return err
		}
		files = append(files, *a)
	}
	s.sel.SetVisible(files)
	return nil
}

// Upload sends a file and keeps its deletion token locally.
func (s *GalleryService) Upload(ctx context.Context, filename string, data []byte) (*models.Upload, error) {
	up, err := s.client.Upload(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Set(ctx, up.Artifact.Name, up.DeletionToken, s.now()); err != nil {
		return up, fmt.Errorf("uploaded %s but could not save its deletion token: %w", up.Artifact.Name, err)
	}
	if s.album != AllFiles {
		if err := s.client.AddFiles(ctx, s.album, []string{up.Artifact.Name}); err != nil {
			return up, err
		}
	}
	return up, s.Refresh(ctx)
}

func (s *GalleryService) Albums(ctx context.Context) ([]models.Album, error) {
	return s.client.ListAlbums(ctx)
}

func (s *GalleryService) CreateAlbum(ctx context.Context, name, description string, shared bool) (*models.Album, error) {
	return s.client.CreateAlbum(ctx, name, description, shared)
}

// AddSelectionTo adds every selected file to each album. Albums succeed or
// fail independently.
func (s *GalleryService) AddSelectionTo(ctx context.Context, albumIDs ...int64) ([]models.BatchResult, error) {
	names := s.sel.SelectedFiles()
	if len(names) == 0 {
		return nil, ErrEmptySelection
	}
	if len(albumIDs) == 0 {
		return nil, common.Validation("add selection", "no albums given")
	}
	return s.client.AddFilesToAlbums(ctx, albumIDs, names)
}

// RemoveSelectionFromAlbum detaches the selected files from the open album
// and drops them from the selection.
func (s *GalleryService) RemoveSelectionFromAlbum(ctx context.Context) error {
	if s.album == AllFiles {
		return ErrNoAlbumOpen
	}
	names := s.sel.SelectedFiles()
	if len(names) == 0 {
		return ErrEmptySelection
	}
	if err := s.client.RemoveFiles(ctx, s.album, names); err != nil {
		return err
	}
	s.sel.Remove(names...)
	return s.Refresh(ctx)
}

// DeleteResult lists what DeleteSelection did per file.
type DeleteResult struct {
	Deleted []string
	// NoToken holds files uploaded elsewhere; only their uploader can delete
	// them.
	NoToken []string
	Failed  map[string]error
}

// DeleteSelection deletes every selected file this client holds a token
// for. Deleted files leave the selection; the rest stay selected.
func (s *GalleryService) DeleteSelection(ctx context.Context) (*DeleteResult, error) {
	names := s.sel.SelectedFiles()
	if len(names) == 0 {
		return nil, ErrEmptySelection
	}

	res := &DeleteResult{Failed: map[string]error{}}
	for _, n := range names {
		token, err := s.tokens.Get(ctx, n)
		if err != nil {
			return res, err
		}
		if token == "" {
			res.NoToken = append(res.NoToken, n)
			continue
		}
		if err := s.client.DeleteFile(ctx, n, token); err != nil && !errors.Is(err, common.ErrNotFound) {
			res.Failed[n] = err
			continue
		}
		if err := s.tokens.Delete(ctx, n); err != nil {
			return res, err
		}
		res.Deleted = append(res.Deleted, n)
	}

	s.sel.Remove(res.Deleted...)
	return res, s.Refresh(ctx)
}
