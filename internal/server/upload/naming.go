// Package upload turns an inbound file into a stored artifact: it names the
// file, picks the directory, checks for collisions, writes it with the
// configured permissions, and renders a thumbnail for images.
package upload

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const fallbackName = "file"

// NameResolver derives filesystem-safe names. It is pure apart from the
// injected clock and random source.
type NameResolver struct {
	now    func() time.Time
	random func() string
}

type NameOption func(*NameResolver)

func WithClock(now func() time.Time) NameOption {
	return func(r *NameResolver) { r.now = now }
}

func WithRandom(random func() string) NameOption {
	return func(r *NameResolver) { r.random = random }
}

func NewNameResolver(opts ...NameOption) *NameResolver {
	r := &NameResolver{now: time.Now, random: shortRandom}
	for _, o := range opts {
		o(r)
	}
	return r
}

func shortRandom() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Resolve returns the stored name for original. With preserveOriginal the
// sanitized original name is used; otherwise template is expanded
// ({timestamp}, {random}, {original}) and the original extension appended.
// The result always matches ^[a-z0-9-_.]+$.
func (r *NameResolver) Resolve(original, template string, preserveOriginal bool) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if base == "." || base == "/" {
		base = ""
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	ext = sanitizeExt(ext)

	if !preserveOriginal {
		stem = strings.NewReplacer(
			"{timestamp}", strconv.FormatInt(r.now().Unix(), 10),
			"{random}", r.random(),
			"{original}", stem,
		).Replace(template)
	}

	stem = strings.TrimLeft(Sanitize(stem), ".")
	if stem == "" {
		stem = fallbackName
	}
	return stem + ext
}

// Sanitize lower-cases s and drops every character outside [a-z0-9-_.].
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range strings.ToLower(s) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func sanitizeExt(ext string) string {
	ext = strings.ReplaceAll(Sanitize(ext), ".", "")
	if ext == "" {
		return ""
	}
	return "." + ext
}
