package scanner

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// DefaultIgnored are directory names the crawler never descends into.
var DefaultIgnored = []string{".git", "vendor", "node_modules", "testdata"}

// SourceFile is a file one of the extractors can read.
type SourceFile struct {
	// ID is the slash-separated path relative to the scan root.
	ID        string
	Path      string
	Size      int64
	Extractor *Extractor
}

// Crawler scans a directory for source files.
type Crawler struct {
	extractors []*Extractor
	ignored    map[string]bool
}

// NewCrawler creates a crawler matching files against the given extractors.
func NewCrawler(extractors []*Extractor, ignore ...string) *Crawler {
	c := &Crawler{
		extractors: extractors,
		ignored:    make(map[string]bool, len(DefaultIgnored)+len(ignore)),
	}
	for _, name := range DefaultIgnored {
		c.ignored[name] = true
	}
	for _, name := range ignore {
		c.ignored[name] = true
	}
	return c
}

// ScanProject walks root and streams every source file to onFile in walk
// order. Go test files are skipped.
func (c *Crawler) ScanProject(root string, onFile func(SourceFile) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path != root && c.ignored[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), "_test.go") {
			return nil
		}

		ext := c.extractorFor(path)
		if ext == nil {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		return onFile(SourceFile{
			ID:        filepath.ToSlash(rel),
			Path:      path,
			Size:      info.Size(),
			Extractor: ext,
		})
	})
}

func (c *Crawler) extractorFor(path string) *Extractor {
	for _, e := range c.extractors {
		if e.Handles(path) {
			return e
		}
	}
	return nil
}
