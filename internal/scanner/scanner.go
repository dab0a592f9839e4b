// Package scanner produces a snapshot from a source tree by extracting the
// import statements of every Go, JavaScript and TypeScript file.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"depflow/internal/snapshot"
)

// Options selects what Scan reads.
type Options struct {
	Languages []string
	Ignore    []string
	// Workers bounds concurrent parsing; 0 uses GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

// Scan walks root and returns a snapshot with one module per source file and
// one link per resolved import. Files that fail to parse are kept as modules
// without links.
func Scan(ctx context.Context, root string, opts Options) (*snapshot.Snapshot, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	extractors := make([]*Extractor, 0, len(opts.Languages))
	for _, lang := range opts.Languages {
		ext, err := NewExtractor(lang)
		if err != nil {
			return nil, err
		}
		extractors = append(extractors, ext)
	}

	var files []SourceFile
	crawler := NewCrawler(extractors, opts.Ignore...)
	if err := crawler.ScanProject(root, func(f SourceFile) error {
		files = append(files, f)
		return ctx.Err()
	}); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	resolver, err := NewResolver(root, files)
	if err != nil {
		return nil, err
	}

	specs := make([][]string, len(files))
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			found, err := f.Extractor.ExtractFromFile(gctx, f.Path)
			if err != nil {
				// Log and continue instead of failing the whole scan
				logger.Warn("skipping imports of unparsable file", "file", f.ID, "error", err)
				return nil
			}
			specs[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &snapshot.Snapshot{
		Modules: make(map[string]snapshot.Module, len(files)),
		Order:   make([]string, 0, len(files)),
	}
	for i, f := range files {
		size := float64(f.Size)
		snap.Modules[f.ID] = snapshot.Module{
			Size: &size,
			Meta: map[string]any{"language": f.Extractor.Name()},
		}
		snap.Order = append(snap.Order, f.ID)

		seen := make(map[string]bool)
		for _, spec := range specs[i] {
			for _, target := range resolver.Resolve(f, spec) {
				if target == f.ID || seen[target] {
					continue
				}
				seen[target] = true
				snap.Links = append(snap.Links, snapshot.Link{Source: f.ID, Target: target})
			}
		}
	}

	logger.Info("scan complete",
		"root", root,
		"modules", len(snap.Modules),
		"links", len(snap.Links),
		"go_module", resolver.ModulePath(),
	)
	return snap, nil
}
