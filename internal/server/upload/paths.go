package upload

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/filex"
	"github.com/dmitrijs2005/gophgallery/internal/server/config"
)

// PathResolver picks the directory an artifact is stored in and creates it.
type PathResolver struct {
	cfg config.Storage
	loc *time.Location
	now func() time.Time
}

func NewPathResolver(cfg config.Storage, now func() time.Time) (*PathResolver, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, common.Validation("storage", "timezone %q: %v", cfg.Timezone, err)
		}
		loc = l
	}
	if now == nil {
		now = time.Now
	}
	return &PathResolver{cfg: cfg, loc: loc, now: now}, nil
}

// Resolve returns the directory for a new artifact under baseDir, creating
// it with the configured directory mode.
//
// by-type resolves to baseDir like flat; per-class folders are not created.
// candidate is accepted for that policy and currently unused.
func (r *PathResolver) Resolve(policy, baseDir, candidate string) (string, error) {
	perm := r.cfg.Permissions.Directories.Perm()

	switch policy {
	case config.StructureFlat, config.StructureByType:
		if err := filex.EnsureDir(baseDir, perm); err != nil {
			return "", common.StorageIO("resolve path", err)
		}
		return baseDir, nil
	case config.StructureByDate:
		rel := RenderPattern(r.cfg.FolderPattern, r.now().In(r.loc))
		if !filepath.IsLocal(rel) {
			return "", common.Validation("resolve path", "folder pattern %q escapes storage root", r.cfg.FolderPattern)
		}
		dir, err := filex.EnsureSubDirs(baseDir, rel, perm)
		if err != nil {
			return "", common.StorageIO("resolve path", err)
		}
		return dir, nil
	default:
		return "", common.Validation("resolve path", "unknown storage structure %q", policy)
	}
}

// RenderPattern substitutes YYYY, MM, DD and HH in pattern with t's fields.
func RenderPattern(pattern string, t time.Time) string {
	rel := strings.NewReplacer(
		"YYYY", fmt.Sprintf("%04d", t.Year()),
		"MM", fmt.Sprintf("%02d", int(t.Month())),
		"DD", fmt.Sprintf("%02d", t.Day()),
		"HH", fmt.Sprintf("%02d", t.Hour()),
	).Replace(pattern)
	return filepath.FromSlash(rel)
}
