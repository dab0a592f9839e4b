package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"depflow/internal/git"
	"depflow/internal/graph"
	"depflow/internal/scanner"
	"depflow/internal/snapshot"
	"depflow/internal/storage"
	"depflow/internal/tree"
)

var (
	pathsMax     int
	pathsLimit   int
	treeCollapse bool
	linksFocus   string
	scanOut      string
	impactSince  string
	impactDir    string
)

func init() {
	pathsCmd.Flags().IntVar(&pathsMax, "max", 0, "Maximum number of edges per chain (0 = unbounded)")
	pathsCmd.Flags().IntVar(&pathsLimit, "limit", graph.DefaultPathLimit, "Maximum number of chains")
	treeCmd.Flags().BoolVar(&treeCollapse, "collapse", false, "Skip single-child directories (overrides config)")
	linksCmd.Flags().StringVar(&linksFocus, "focus", "", "Only links touching this module or directory")
	scanCmd.Flags().StringVarP(&scanOut, "out", "o", "-", "Output file (.json, .yaml or .db); - writes JSON to stdout")
	impactCmd.Flags().StringVar(&impactSince, "since", "HEAD", "Git reference to diff against")
	impactCmd.Flags().StringVar(&impactDir, "dir", ".", "Directory the snapshot was scanned from")
}

var queryCmd = &cobra.Command{
	Use:       "query forward|reverse|affected <id>",
	Short:     "List the modules reachable from a module",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"forward", "reverse", "affected"},
	Run: func(cmd *cobra.Command, args []string) {
		dir, err := graph.ParseDirection(args[0])
		if err != nil {
			log.Fatalf("%v", err)
		}
		cfg, logger := loadConfig()
		st := mustState(cfg, logger)

		ids, err := st.Query(dir, args[1])
		if err != nil {
			log.Fatalf("Query failed: %v", err)
		}
		for _, id := range ids {
			fmt.Println(id)
		}
	},
}

var pathsCmd = &cobra.Command{
	Use:   "paths <from> <to>",
	Short: "List every dependency chain from one module to another",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig()
		st := mustState(cfg, logger)

		paths := st.Graph.Paths(args[0], args[1], graph.PathOptions{MaxDepth: pathsMax, Limit: pathsLimit})
		if len(paths) == 0 {
			fmt.Printf("No chain from %s to %s.\n", args[0], args[1])
			return
		}
		for _, p := range paths {
			fmt.Println(strings.Join(p, " -> "))
		}
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the module hierarchy",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig()
		if cmd.Flags().Changed("collapse") {
			cfg.Display.Collapse = treeCollapse
		}
		st := mustState(cfg, logger)
		printTree(os.Stdout, tree.Render(st.Tree.Root, st.Children), 0)
	},
}

func printTree(w io.Writer, v *tree.View, depth int) {
	if depth > 0 {
		line := strings.Repeat("  ", depth-1) + v.Label
		if v.Size != nil {
			line += fmt.Sprintf(" (%g)", *v.Size)
		}
		fmt.Fprintln(w, line)
	}
	for _, c := range v.Children {
		printTree(w, c, depth+1)
	}
}

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Print the links the viewer draws, with the tree path each one follows",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig()
		st := mustState(cfg, logger)

		res := st.Focus(linksFocus)
		for _, l := range res.Links {
			fmt.Printf("%s -> %s\t[%s]\n", l.Source, l.Target, strings.Join(l.Chain, " > "))
		}
		if len(res.Highlight) > 0 {
			fmt.Printf("\nhighlight: %s\n", strings.Join(res.Highlight, ", "))
		}
		if st.Skipped > 0 {
			fmt.Printf("⚠️  %d links skipped (unknown module)\n", st.Skipped)
		}
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a source tree and write its module snapshot",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig()
		root := "."
		if len(args) > 0 {
			root = args[0]
		}

		if scanOut != "-" {
			fmt.Printf("📂 Scanning directory: %s\n", root)
		}
		start := time.Now()
		snap, err := scanner.Scan(context.Background(), root, scanner.Options{
			Languages: cfg.Scan.Languages,
			Ignore:    cfg.Scan.Ignore,
			Logger:    logger,
		})
		if err != nil {
			log.Fatalf("Scan failed: %v", err)
		}

		if err := writeSnapshot(scanOut, snap); err != nil {
			log.Fatalf("Failed to write snapshot: %v", err)
		}
		if scanOut != "-" {
			fmt.Printf("✅ %d modules, %d links in %v. Written to %s\n",
				len(snap.Modules), len(snap.Links), time.Since(start), scanOut)
		}
	},
}

func writeSnapshot(out string, snap *snapshot.Snapshot) error {
	if out == "-" {
		return snapshot.Encode(os.Stdout, snap, snapshot.FormatJSON)
	}
	if isDatabase(out) {
		store, err := storage.NewSQLiteStore(out)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.SaveSnapshot(context.Background(), snap)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := snapshot.Encode(f, snap, snapshot.FormatFromPath(out)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var impactCmd = &cobra.Command{
	Use:   "impact",
	Short: "Show the blast radius of the files changed since a git reference",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig()
		st := mustState(cfg, logger)

		changes, err := git.GetChangedFiles(context.Background(), impactDir, impactSince)
		if err != nil {
			log.Fatalf("Failed to get git changes: %v", err)
		}
		if len(changes) == 0 {
			fmt.Println("✅ No changes detected.")
			return
		}

		var changed []string
		for _, p := range git.Paths(changes) {
			if n, ok := st.Tree.Node(p); ok && n.IsLeaf() {
				changed = append(changed, p)
			}
		}
		fmt.Printf("📝 %d changed files, %d of them in the snapshot.\n", len(changes), len(changed))

		report := st.Graph.ImpactOf(changed)
		for _, id := range report.Affected {
			fmt.Println(id)
		}
	},
}
