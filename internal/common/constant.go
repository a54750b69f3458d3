// Package common contains shared constants, random helpers and the error
// taxonomy used across gophgallery components.
package common

const (
	// UserIDHeaderName carries the caller identity resolved by the session
	// layer in front of the API.
	UserIDHeaderName = "X-User-ID"

	// RequestIDHeaderName is echoed back on every HTTP response.
	RequestIDHeaderName = "X-Request-ID"

	// ThumbnailPrefix is prepended to the artifact name to build the
	// thumbnail file name.
	ThumbnailPrefix = "thumb_"

	// DeletionTokenSize is the number of random bytes in a deletion token.
	DeletionTokenSize = 32

	// FilesRoute is the URL path below the public domain where the storage
	// root is served.
	FilesRoute = "files"
)
