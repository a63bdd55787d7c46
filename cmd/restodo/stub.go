package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sandeepkv93/restodo/internal/logging"
	"github.com/sandeepkv93/restodo/internal/pgstub"
	"github.com/sandeepkv93/restodo/internal/storage"
)

func stubCmd(opts *rootOptions) *cobra.Command {
	var (
		addr   string
		dbPath string
	)
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Serve a local PostgREST-compatible todos backend backed by sqlite",
		Long: `Serve the todos table over HTTP the way PostgREST does, for development.

Examples:
  restodo stub
  restodo stub --addr :3001 --db /tmp/todos.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.StubAddr
			}
			if dbPath == "" {
				dbPath = cfg.StubDB
			}

			// The stub owns the terminal, so it logs to stderr.
			logger, err := logging.New("", cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			undo := zap.ReplaceGlobals(logger)
			defer undo()

			if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create database dir: %w", err)
				}
			}
			repo, err := storage.OpenSQLite(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			srv := pgstub.New(repo, pgstub.Config{Schema: cfg.Schema, Logger: logger.Named("stub")})
			logger.Info("serving todos", zap.String("db", dbPath))
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :3000)")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite database file (default from config, data/todos.db)")
	return cmd
}
