package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrUnsupportedLanguage is returned for a language without an extractor.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// LanguageExtractor knows how to find import specifiers in one language.
type LanguageExtractor interface {
	Name() string
	Extensions() []string
	// Language returns the grammar for a file; some languages use a
	// different grammar per extension.
	Language(path string) *sitter.Language
	Query() string
	// Specifier returns the imported module named by a query capture, or ""
	// when the capture is not an import.
	Specifier(captureName string, node *sitter.Node, source []byte) string
}

// Extractor runs a language extractor over source files.
type Extractor struct {
	lang LanguageExtractor

	mu      sync.Mutex
	queries map[*sitter.Language]*sitter.Query
}

// NewExtractor creates an extractor for a language name.
func NewExtractor(lang string) (*Extractor, error) {
	var langExt LanguageExtractor
	switch lang {
	case "go":
		langExt = &GoExtractor{}
	case "javascript", "js":
		langExt = &JSExtractor{}
	case "typescript", "ts":
		langExt = &TSExtractor{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	return &Extractor{lang: langExt, queries: make(map[*sitter.Language]*sitter.Query)}, nil
}

// Name is the language handled by the extractor.
func (e *Extractor) Name() string {
	return e.lang.Name()
}

// Handles reports whether path has one of the language's extensions.
func (e *Extractor) Handles(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, x := range e.lang.Extensions() {
		if ext == x {
			return true
		}
	}
	return false
}

// ExtractFromFile parses a file and returns its import specifiers in source
// order.
func (e *Extractor) ExtractFromFile(ctx context.Context, path string) ([]string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return e.Extract(ctx, path, source)
}

// Extract returns the import specifiers found in source. path only selects
// the grammar.
func (e *Extractor) Extract(ctx context.Context, path string, source []byte) ([]string, error) {
	language := e.lang.Language(path)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(language)
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", path, err)
	}
	defer tree.Close()

	query, err := e.query(language)
	if err != nil {
		return nil, err
	}

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	var specs []string
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			name := query.CaptureNameForId(c.Index)
			if spec := e.lang.Specifier(name, c.Node, source); spec != "" {
				specs = append(specs, spec)
			}
		}
	}
	return specs, nil
}

// query compiles the language query once per grammar. Compiled queries are
// shared between cursors.
func (e *Extractor) query(language *sitter.Language) (*sitter.Query, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if q, ok := e.queries[language]; ok {
		return q, nil
	}
	q, err := sitter.NewQuery([]byte(e.lang.Query()), language)
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}
	e.queries[language] = q
	return q, nil
}

// unquote strips the quotes of a string literal node.
func unquote(node *sitter.Node, source []byte) string {
	return strings.Trim(node.Content(source), "\"'`")
}
