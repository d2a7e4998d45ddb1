package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jonathan/lightapp/internal/imagegen"
	"github.com/jonathan/lightapp/internal/llm"
	"github.com/jonathan/lightapp/internal/pipeline"
	"github.com/jonathan/lightapp/internal/registry"
	"github.com/jonathan/lightapp/internal/store"
)

// app holds the wired subsystems shared by the CLI commands. db and backup
// may be nil when the corresponding configuration is absent.
type app struct {
	registry *registry.Registry
	orch     *pipeline.Orchestrator
	db       *store.DB
	backup   *store.LocalBackup
}

// bootstrap loads the configuration and wires the pipeline. The database
// and local backup are both optional; image generation requires at least
// one of them plus a text2image model profile.
func bootstrap(ctx context.Context, configPath, localConfigPath, backupDir string) (*app, error) {
	reg, err := registry.Load(configPath, localConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{registry: reg}

	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := store.Connect(ctx, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		a.db = db
	} else {
		log.Println("DATABASE_URL not set, running without a database")
	}

	if backupDir != "" {
		backup, err := store.NewLocalBackup(backupDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create backup directory: %w", err)
		}
		a.backup = backup
	}

	// Recover apps that only made it to the local backup. Best effort: the
	// server is useful even when the sync fails.
	if a.db != nil && a.backup != nil {
		if n, err := store.SyncBackup(ctx, a.db, a.backup); err != nil {
			log.Printf("Backup sync failed: %v", err)
		} else if n > 0 {
			log.Printf("Synced %d apps from local backup", n)
		}
	}

	var images pipeline.ImageGenerator
	if profile := reg.ImageProfile(); profile != nil {
		var durable, backup imagegen.Sink
		if a.db != nil {
			durable = a.db
		}
		if a.backup != nil {
			backup = a.backup
		}
		if durable == nil && backup != nil {
			durable, backup = backup, nil
		}
		if durable != nil {
			images = imagegen.NewClient(profile, durable, backup)
		} else {
			log.Println("No image storage configured, image generation disabled")
		}
	} else {
		log.Println("No text2image model configured, image generation disabled")
	}

	a.orch = pipeline.NewOrchestrator(reg, llm.NewInvoker(reg.ChatPath()), images)
	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}
