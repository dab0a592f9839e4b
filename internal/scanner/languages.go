package scanner

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// GoExtractor finds import paths in Go files.
type GoExtractor struct{}

func (g *GoExtractor) Name() string { return "go" }

func (g *GoExtractor) Extensions() []string { return []string{".go"} }

func (g *GoExtractor) Language(string) *sitter.Language {
	return golang.GetLanguage()
}

func (g *GoExtractor) Query() string {
	return `(import_spec path: (interpreted_string_literal) @import)`
}

func (g *GoExtractor) Specifier(captureName string, node *sitter.Node, source []byte) string {
	if captureName != "import" {
		return ""
	}
	return unquote(node, source)
}

// esQuery matches static imports, re-exports and call expressions; calls are
// narrowed to require(...) and import(...) in esSpecifier.
const esQuery = `
	(import_statement (string) @import)
	(export_statement (string) @import)
	(call_expression) @call
`

// JSExtractor finds module specifiers in JavaScript files.
type JSExtractor struct{}

func (j *JSExtractor) Name() string { return "javascript" }

func (j *JSExtractor) Extensions() []string {
	return []string{".js", ".jsx", ".mjs", ".cjs"}
}

func (j *JSExtractor) Language(string) *sitter.Language {
	return javascript.GetLanguage()
}

func (j *JSExtractor) Query() string { return esQuery }

func (j *JSExtractor) Specifier(captureName string, node *sitter.Node, source []byte) string {
	return esSpecifier(captureName, node, source)
}

// TSExtractor finds module specifiers in TypeScript files, using the TSX
// grammar for .tsx.
type TSExtractor struct{}

func (t *TSExtractor) Name() string { return "typescript" }

func (t *TSExtractor) Extensions() []string {
	return []string{".ts", ".tsx", ".mts", ".cts"}
}

func (t *TSExtractor) Language(path string) *sitter.Language {
	if strings.HasSuffix(path, ".tsx") {
		return tsx.GetLanguage()
	}
	return typescript.GetLanguage()
}

func (t *TSExtractor) Query() string { return esQuery }

func (t *TSExtractor) Specifier(captureName string, node *sitter.Node, source []byte) string {
	return esSpecifier(captureName, node, source)
}

func esSpecifier(captureName string, node *sitter.Node, source []byte) string {
	switch captureName {
	case "import":
		return unquote(node, source)
	case "call":
		fn := node.ChildByFieldName("function")
		if fn == nil {
			return ""
		}
		if fn.Type() != "import" && !(fn.Type() == "identifier" && fn.Content(source) == "require") {
			return ""
		}
		args := node.ChildByFieldName("arguments")
		if args == nil || args.NamedChildCount() == 0 {
			return ""
		}
		first := args.NamedChild(0)
		if first.Type() != "string" {
			return ""
		}
		return unquote(first, source)
	}
	return ""
}
