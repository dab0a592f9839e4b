package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"depflow/internal/config"
	"depflow/internal/snapshot"
	"depflow/internal/storage"
)

var (
	rootCmd = &cobra.Command{
		Use:   "depflow",
		Short: "Module dependency graph explorer",
	}
	cfgPath      string
	logLevel     string
	snapshotPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "depflow.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&snapshotPath, "snapshot", "s", "", "Snapshot file (.json, .yaml or .db); defaults to the configured one")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(pathsCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(linksCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(impactCmd)
}

// loadConfig reads the configuration and installs the default logger.
func loadConfig() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if snapshotPath != "" {
		cfg.Snapshot = snapshotPath
	}

	logger, err := config.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	slog.SetDefault(logger)
	return cfg, logger
}

func isDatabase(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// loadDocument reads a snapshot from a JSON/YAML file or a SQLite export.
func loadDocument(path string) (*snapshot.Document, error) {
	if !isDatabase(path) {
		return snapshot.Load(path)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer store.Close()
	return store.LoadDocument(context.Background())
}

// mustState loads the configured snapshot into a fresh controller.
func mustState(cfg *config.Config, logger *slog.Logger) *snapshot.State {
	if cfg.Snapshot == "" {
		log.Fatalf("No snapshot given: pass --snapshot or set snapshot in %s", cfgPath)
	}
	doc, err := loadDocument(cfg.Snapshot)
	if err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}

	ctrl := snapshot.NewController(cfg.Display,
		snapshot.WithCacheSize(cfg.Cache.Size),
		snapshot.WithLogger(logger),
	)
	return ctrl.Apply(doc, "file")
}
