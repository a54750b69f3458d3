package models

import "time"

// Album is a named collection of artifact names.
//
// FileCount is a cache of the number of distinct associated names; it is
// rebuilt in the same transaction as every association change and is never
// the source of truth.
type Album struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Owner       Owner     `json:"owner_id"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	FileCount   int       `json:"file_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AlbumFile is one album↔artifact association.
type AlbumFile struct {
	AlbumID  int64     `json:"album_id"`
	FileName string    `json:"file_name"`
	AddedAt  time.Time `json:"added_at"`
}

// NewAlbum carries the fields accepted on creation.
type NewAlbum struct {
	Name        string
	Description string
	Owner       Owner
}

// AlbumPatch lists the fields to change; nil means "leave as is". An empty
// string clears Description or Thumbnail.
type AlbumPatch struct {
	Name        *string
	Description *string
	Thumbnail   *string
	Owner       *Owner
}

// Empty reports whether the patch changes nothing but the timestamp.
func (p AlbumPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Thumbnail == nil && p.Owner == nil
}

// AlbumStats aggregates counts over the albums visible to a viewer.
type AlbumStats struct {
	TotalAlbums          int `json:"total_albums"`
	TotalFiles           int `json:"total_files"`
	AverageFilesPerAlbum int `json:"average_files_per_album"`
}

// AlbumBatchResult reports the outcome of a batch operation for one album.
// Batches are not all-or-nothing; each album succeeds or fails on its own.
type AlbumBatchResult struct {
	AlbumID int64       `json:"album_id"`
	Added   []AlbumFile `json:"added,omitempty"`
	Removed bool        `json:"removed,omitempty"`
	Err     error       `json:"-"`
}
