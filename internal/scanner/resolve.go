package scanner

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// scriptExtensions are tried, in order, for extensionless relative imports.
var scriptExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}

// Resolver maps import specifiers to module ids of files in the scan.
type Resolver struct {
	modulePath string
	files      map[string]bool
	packages   map[string][]string
}

// NewResolver indexes the scanned files. If root holds a go.mod its module
// path is used to resolve Go imports; without one Go imports never resolve.
func NewResolver(root string, files []SourceFile) (*Resolver, error) {
	r := &Resolver{
		files:    make(map[string]bool, len(files)),
		packages: make(map[string][]string),
	}

	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	switch {
	case err == nil:
		r.modulePath = modfile.ModulePath(data)
		if r.modulePath == "" {
			return nil, fmt.Errorf("go.mod in %s has no module directive", root)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	for _, f := range files {
		r.files[f.ID] = true
		if f.Extractor.Name() == "go" {
			dir := path.Dir(f.ID)
			r.packages[dir] = append(r.packages[dir], f.ID)
		}
	}
	return r, nil
}

// ModulePath is the Go module path read from go.mod.
func (r *Resolver) ModulePath() string {
	return r.modulePath
}

// Resolve returns the module ids specifier refers to when imported from file.
// External and unresolvable specifiers yield nothing.
func (r *Resolver) Resolve(from SourceFile, specifier string) []string {
	if from.Extractor.Name() == "go" {
		return r.resolveGo(specifier)
	}
	if id, ok := r.resolveScript(from.ID, specifier); ok {
		return []string{id}
	}
	return nil
}

func (r *Resolver) resolveGo(specifier string) []string {
	if r.modulePath == "" {
		return nil
	}
	var dir string
	switch {
	case specifier == r.modulePath:
		dir = "."
	case strings.HasPrefix(specifier, r.modulePath+"/"):
		dir = strings.TrimPrefix(specifier, r.modulePath+"/")
	default:
		return nil
	}
	return r.packages[dir]
}

func (r *Resolver) resolveScript(fromID, specifier string) (string, bool) {
	if specifier != "." && specifier != ".." && !strings.HasPrefix(specifier, "./") && !strings.HasPrefix(specifier, "../") {
		return "", false
	}
	base := path.Join(path.Dir(fromID), specifier)
	if base == ".." || strings.HasPrefix(base, "../") {
		return "", false
	}

	if r.files[base] {
		return base, true
	}
	for _, ext := range scriptExtensions {
		if r.files[base+ext] {
			return base + ext, true
		}
	}
	for _, ext := range scriptExtensions {
		candidate := path.Join(base, "index"+ext)
		if r.files[candidate] {
			return candidate, true
		}
	}
	return "", false
}
