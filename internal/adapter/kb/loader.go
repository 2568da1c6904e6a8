package kb

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"kbdraft/internal/domain"
	"kbdraft/internal/port"
)

var _ port.DocumentSource = (*Loader)(nil)

// Loader reads knowledge-base documents from a directory tree. Files are
// matched against include/exclude glob patterns and returned sorted by
// relative path, so the corpus order (and with it the retriever's
// tie-break) is stable across runs.
type Loader struct {
	dir      string
	includes []string
	excludes []string
}

// NewLoader creates a Loader rooted at dir.
func NewLoader(dir string, includes, excludes []string) *Loader {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Loader{
		dir:      dir,
		includes: includes,
		excludes: excludes,
	}
}

// Load reads all matching files. The source ID is the filename stem
// (path relative to the KB dir, extension stripped).
func (l *Loader) Load() ([]domain.Document, error) {
	root, err := filepath.Abs(l.dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if l.shouldInclude(relPath) && !l.shouldExclude(relPath) {
			paths = append(paths, relPath)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", l.dir, err)
	}

	sort.Strings(paths)

	docs := make([]domain.Document, 0, len(paths))
	for _, relPath := range paths {
		data, err := os.ReadFile(filepath.Join(root, relPath))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", relPath, err)
		}
		docs = append(docs, domain.Document{
			SourceID: sourceID(relPath),
			Text:     string(data),
		})
	}

	return docs, nil
}

func (l *Loader) shouldInclude(path string) bool {
	for _, pattern := range l.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (l *Loader) shouldExclude(path string) bool {
	for _, pattern := range l.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// sourceID strips the extension and normalizes separators so IDs stay
// stable across platforms.
func sourceID(relPath string) string {
	id := filepath.ToSlash(relPath)
	id = strings.TrimSuffix(id, filepath.Ext(id))
	return id
}
