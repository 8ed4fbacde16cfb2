package fs

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// CorpusFile is one document candidate found under a corpus directory.
// Path is relative to the walked root so it can double as a document id.
type CorpusFile struct {
	Path string
	Size int64
}

// Walker finds corpus files under a root directory, filtered by
// doublestar glob patterns relative to the root.
type Walker struct {
	includes []string
	excludes []string
}

// NewWalker creates a walker; empty includes matches everything.
func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{includes: includes, excludes: excludes}
}

// Walk returns the matching files under root, in walk order.
func (w *Walker) Walk(root string) ([]CorpusFile, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []CorpusFile
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if w.excluded(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if w.included(rel) && !w.excluded(rel) {
			files = append(files, CorpusFile{Path: rel, Size: info.Size()})
		}
		return nil
	})
	return files, err
}

func (w *Walker) included(path string) bool {
	for _, pattern := range w.includes {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

func (w *Walker) excluded(path string) bool {
	for _, pattern := range w.excludes {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// ReadFile reads a corpus file as text.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
