package models

import "time"

// Class is the coarse content-type class of an artifact.
type Class string

const (
	ClassImage    Class = "image"
	ClassDocument Class = "document"
	ClassArchive  Class = "archive"
	ClassOther    Class = "other"
)

// Artifact describes a stored file. Name is both the on-disk file name and
// the public identifier.
type Artifact struct {
	Name string `json:"name"`
	// RelPath is the path below the storage root, slash separated.
	RelPath string `json:"-"`
	Size    int64  `json:"size"`
	Class   Class  `json:"class"`

	// ThumbnailName and ThumbnailRelPath are empty when no derivative exists.
	ThumbnailName    string `json:"thumbnail,omitempty"`
	ThumbnailRelPath string `json:"-"`

	// TokenHash is the digest of the deletion token; the token itself is
	// only returned once, from ingest.
	TokenHash string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// PublishedArtifact is an artifact together with its public URLs.
type PublishedArtifact struct {
	Artifact
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}
