package upload

import (
	"strings"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/server/config"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
	"github.com/gabriel-vasile/mimetype"
)

var documentTypes = map[string]struct{}{
	"application/pdf":               {},
	"application/rtf":               {},
	"application/msword":            {},
	"application/vnd.ms-excel":      {},
	"application/vnd.ms-powerpoint": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	"application/vnd.oasis.opendocument.text":                                   {},
	"application/vnd.oasis.opendocument.spreadsheet":                            {},
	"application/vnd.oasis.opendocument.presentation":                           {},
	"application/epub+zip": {},
}

var archiveTypes = map[string]struct{}{
	"application/zip":              {},
	"application/x-tar":            {},
	"application/gzip":             {},
	"application/x-bzip2":          {},
	"application/x-xz":             {},
	"application/x-7z-compressed":  {},
	"application/x-rar-compressed": {},
	"application/zstd":             {},
}

// Classify sniffs data and maps the detected MIME type onto a content
// class. Subtypes are resolved before their parents, so a .docx is a
// document even though it is also a zip.
func Classify(data []byte) (models.Class, string) {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if c, ok := classOf(m.String()); ok {
			return c, detected.String()
		}
	}
	return models.ClassOther, detected.String()
}

func classOf(mime string) (models.Class, bool) {
	mime, _, _ = strings.Cut(mime, ";")
	switch {
	case strings.HasPrefix(mime, "image/"):
		return models.ClassImage, true
	case strings.HasPrefix(mime, "text/"):
		return models.ClassDocument, true
	}
	if _, ok := documentTypes[mime]; ok {
		return models.ClassDocument, true
	}
	if _, ok := archiveTypes[mime]; ok {
		return models.ClassArchive, true
	}
	return "", false
}

// Validator enforces the allowed content classes and the size bounds.
type Validator struct {
	cfg config.Upload
}

func NewValidator(cfg config.Upload) *Validator {
	return &Validator{cfg: cfg}
}

// Validate checks size and content class and returns the detected class.
func (v *Validator) Validate(name string, data []byte) (models.Class, error) {
	if strings.TrimSpace(name) == "" {
		return "", common.Validation("validate upload", "file name is required")
	}

	size := int64(len(data))
	if size < v.cfg.MinSize {
		return "", common.Validation("validate upload", "file is smaller than %d bytes", v.cfg.MinSize)
	}
	if v.cfg.MaxSize > 0 && size > v.cfg.MaxSize {
		return "", common.Validation("validate upload", "file is larger than %d bytes", v.cfg.MaxSize)
	}

	class, mime := Classify(data)
	if !v.allowed(class) {
		return "", common.Validation("validate upload", "%s files (%s) are not allowed", class, mime)
	}
	return class, nil
}

func (v *Validator) allowed(c models.Class) bool {
	t := v.cfg.AllowedTypes
	switch c {
	case models.ClassImage:
		return t.Images
	case models.ClassDocument:
		return t.Documents
	case models.ClassArchive:
		return t.Archives
	default:
		return t.Other
	}
}
