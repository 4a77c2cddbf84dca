package filewalker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// MapExtension is the extension of map source files.
const MapExtension = ".map"

// Walker finds map files under a directory.
type Walker struct {
	extensions map[string]bool
	skipDirs   map[string]bool
}

// NewWalker creates a Walker for .map files. Editor backup and autosave
// directories are skipped.
func NewWalker() *Walker {
	return &Walker{
		extensions: map[string]bool{MapExtension: true},
		skipDirs: map[string]bool{
			".git":     true,
			"autosave": true,
			"backup":   true,
		},
	}
}

// FileEntry represents a discovered map file.
type FileEntry struct {
	Path string
	Size int64
}

// Walk discovers every map file under root, sorted by path. A root that is
// itself a map file yields just that file.
func (w *Walker) Walk(root string) ([]FileEntry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		if !w.matches(root) {
			return nil, fmt.Errorf("not a map file: %s", root)
		}
		return []FileEntry{{Path: root, Size: info.Size()}}, nil
	}

	var entries []FileEntry

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}

		if d.IsDir() {
			if path != root && w.skipDirs[strings.ToLower(d.Name())] {
				return filepath.SkipDir
			}
			return nil
		}

		if !w.matches(path) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Cannot stat map file")
			return nil
		}
		entries = append(entries, FileEntry{Path: path, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	log.Info().Int("count", len(entries)).Str("root", root).Msg("Discovered map files")
	return entries, nil
}

func (w *Walker) matches(path string) bool {
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}
