// Package migration discovers, reads and parses migration scripts.
//
// A migration file is named <version>__<description>, where version is a
// decimal number optionally preceded by a letter prefix (V1__init.sql,
// 0002__users.sql). Files are replayed in ascending version order.
package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrUnversioned reports a file whose name carries no numeric version.
var ErrUnversioned = errors.New("migration file has no version")

// File is one discovered migration script.
type File struct {
	// Path is the path on disk.
	Path string
	// Rel is Path relative to the listed directory, with forward slashes.
	Rel     string
	Version uint64
}

// Version extracts the numeric version from a migration file name.
func Version(name string) (uint64, error) {
	base := filepath.Base(name)
	token, _, found := strings.Cut(base, "__")
	if !found {
		token = strings.TrimSuffix(base, filepath.Ext(base))
	}
	digits := strings.TrimLeftFunc(token, func(r rune) bool { return r < '0' || r > '9' })
	if digits == "" {
		return 0, fmt.Errorf("%w: %s", ErrUnversioned, base)
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrUnversioned, base, err)
	}
	return v, nil
}

// List walks dir recursively and returns its migration files sorted by
// version, ties broken by relative path. Hidden files and directories are
// skipped.
func List(dir string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		v, err := Version(d.Name())
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, File{Path: path, Rel: filepath.ToSlash(rel), Version: v})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("migration: list %s: %w", dir, err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Version != files[j].Version {
			return files[i].Version < files[j].Version
		}
		return files[i].Rel < files[j].Rel
	})
	return files, nil
}
