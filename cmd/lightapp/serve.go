package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/lightapp/internal/server"
)

var (
	servePort        int
	serveConfig      string
	serveLocalConfig string
	serveBackupDir   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the generation API server",
	Long:  `Start an HTTP server that exposes the generation pipeline, saved apps, and standalone app pages.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveConfig, "config", "config.json", "Path to the model/stage config file")
	serveCmd.Flags().StringVar(&serveLocalConfig, "local-config", "config.local.json", "Path to the local overlay holding endpoints and credentials")
	serveCmd.Flags().StringVar(&serveBackupDir, "backup-dir", "data", "Directory for the local app/image backup (empty to disable)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	a, err := bootstrap(context.Background(), serveConfig, serveLocalConfig, serveBackupDir)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Port:     servePort,
		Registry: a.registry,
		Orch:     a.orch,
		DB:       a.db,
		Backup:   a.backup,
	})

	if err := srv.Start(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
