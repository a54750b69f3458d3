// Package netx holds small HTTP helpers shared by clients.
package netx

import (
	"bytes"
	"mime/multipart"
)

// MultipartFile encodes data as a single-file multipart/form-data body and
// returns it with the matching Content-Type.
func MultipartFile(field, filename string, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
