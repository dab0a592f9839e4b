package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"depflow/internal/server"
	"depflow/internal/snapshot"
	"depflow/internal/watch"
)

var (
	servePort     int
	serveNoWatch  bool
	serveCollapse bool
)

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not reload the snapshot file when it changes")
	serveCmd.Flags().BoolVar(&serveCollapse, "collapse", false, "Start with single-child directories collapsed")
}

var serveCmd = &cobra.Command{
	Use:   "serve [snapshot]",
	Short: "Serve the snapshot to viewers and push every change over websockets",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig()
		if len(args) > 0 {
			cfg.Snapshot = args[0]
		}
		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		if cmd.Flags().Changed("collapse") {
			cfg.Display.Collapse = serveCollapse
		}

		ctrl := snapshot.NewController(cfg.Display,
			snapshot.WithCacheSize(cfg.Cache.Size),
			snapshot.WithLogger(logger),
		)
		if cfg.Snapshot != "" {
			doc, err := loadDocument(cfg.Snapshot)
			if err != nil {
				log.Fatalf("Failed to load snapshot: %v", err)
			}
			st := ctrl.Apply(doc, "file")
			fmt.Printf("📦 Loaded %s: %d nodes, %d links\n", cfg.Snapshot, st.Tree.Len(), st.Graph.EdgeCount())
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(ctrl, server.Options{
			AllowedOrigin: cfg.Server.AllowedOrigin,
			Logger:        logger,
		})

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, cfg.Addr())
		})

		if cfg.Snapshot != "" && cfg.Watch.Enabled && !serveNoWatch {
			w, err := watch.New(cfg.Snapshot, ctrl, watch.Options{
				Debounce: cfg.Watch.Debounce,
				Loader:   loadDocument,
				Logger:   logger,
			})
			if err != nil {
				log.Fatalf("Failed to create watcher: %v", err)
			}
			g.Go(func() error {
				return w.Run(gctx)
			})
		}

		fmt.Printf("🚀 Serving on http://%s\n", cfg.Addr())
		if err := g.Wait(); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
		fmt.Println("👋 Shut down.")
	},
}
