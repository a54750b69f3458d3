// Package models defines client-side data models used by gallery views.
package models

import "time"

// Artifact is a stored file as listed by the server.
type Artifact struct {
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Size         int64     `json:"size"`
	Class        string    `json:"class"`
	CreatedAt    time.Time `json:"created_at"`
}

// Album is an album as listed by the server. OwnerID is empty for shared
// albums.
type Album struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	FileCount   int       `json:"file_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Upload is the server's answer to a successful upload. DeletionToken is
// shown only once.
type Upload struct {
	URL           string   `json:"url"`
	ThumbnailURL  string   `json:"thumbnail_url,omitempty"`
	DeletionToken string   `json:"deletion_token"`
	Artifact      Artifact `json:"artifact"`
	Warning       string   `json:"warning,omitempty"`
}

// BatchResult is the per-album outcome of a batch request.
type BatchResult struct {
	AlbumID int64  `json:"album_id"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
