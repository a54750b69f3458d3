// Package filex wraps the filesystem operations used by the upload pipeline:
// idempotent directory creation with enforced permissions, permission-aware
// writes, and octal file modes that decode from configuration.
package filex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// EnsureDir creates dir and any missing parents, then applies perm to dir.
// An already existing directory is not an error; an existing non-directory is.
func EnsureDir(dir string, perm os.FileMode) error {
	if err := os.MkdirAll(dir, perm); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	// MkdirAll is subject to umask.
	if err := os.Chmod(dir, perm); err != nil {
		return fmt.Errorf("chmod %s: %w", dir, err)
	}
	return nil
}

// EnsureSubDirs creates each path element of rel below base, applying perm
// to every directory it creates or finds. base itself must already exist or
// be creatable.
func EnsureSubDirs(base, rel string, perm os.FileMode) (string, error) {
	if err := EnsureDir(base, perm); err != nil {
		return "", err
	}
	dir := base
	for _, part := range splitPath(rel) {
		dir = filepath.Join(dir, part)
		if err := EnsureDir(dir, perm); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func splitPath(rel string) []string {
	var parts []string
	for rel != "" && rel != "." && rel != string(filepath.Separator) {
		dir, file := filepath.Split(filepath.Clean(rel))
		if file != "" {
			parts = append([]string{file}, parts...)
		}
		rel = filepath.Clean(dir)
		if rel == "." || rel == string(filepath.Separator) {
			break
		}
	}
	return parts
}

// Exists reports whether path exists. Stat failures other than "not exist"
// are returned.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// WriteFile writes data to path and applies perm explicitly.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}

// RemoveIfExists deletes path, ignoring a missing file.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
