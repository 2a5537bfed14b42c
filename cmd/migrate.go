/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/inkpress/apiserver/config"
	"github.com/inkpress/apiserver/internal/db"
	"github.com/inkpress/apiserver/internal/server"
	"github.com/inkpress/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run schema and data migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations to the postgres store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if err := db.Migrate(db.PostgresURL(cfg.Database)); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
		slog.Info("migrations applied")
		return nil
	},
}

var migrateAuthorsCmd = &cobra.Command{
	Use:   "authors",
	Short: "Link novels carrying a free-text author to Author records",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		backend, err := store.OpenBackend(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer backend.Close()

		svc, err := server.NewServices(backend, nil, nil)
		if err != nil {
			return err
		}
		linked, err := svc.Authors.LinkLegacyNovels(cmd.Context())
		if err != nil {
			return fmt.Errorf("link authors: %w", err)
		}
		slog.Info("linked legacy novel authors", "novels", linked)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateAuthorsCmd)
}
