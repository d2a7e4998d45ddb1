package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/lightapp/internal/imagegen"
)

// LocalBackup mirrors saved apps and generated images to the filesystem.
// The backup exists for debugging and for riding out database outages; the
// database remains the source of truth.
type LocalBackup struct {
	appsDir   string
	imagesDir string
}

// NewLocalBackup creates the backup directories under root.
func NewLocalBackup(root string) (*LocalBackup, error) {
	b := &LocalBackup{
		appsDir:   filepath.Join(root, "apps"),
		imagesDir: filepath.Join(root, "images"),
	}
	for _, dir := range []string{b.appsDir, b.imagesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create backup dir %s: %w", dir, err)
		}
	}
	return b, nil
}

// SaveImage writes the image PNG to the backup directory. It implements
// imagegen.Sink.
func (b *LocalBackup) SaveImage(_ context.Context, img *imagegen.Image) error {
	path := filepath.Join(b.imagesDir, img.ID+".png")
	if err := os.WriteFile(path, img.PNG, 0o644); err != nil {
		return fmt.Errorf("failed to write image backup %s: %w", path, err)
	}
	return nil
}

// SaveApp writes the app record as pretty-printed JSON.
func (b *LocalBackup) SaveApp(app *App) error {
	data, err := json.MarshalIndent(app, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal app backup: %w", err)
	}
	path := filepath.Join(b.appsDir, app.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write app backup %s: %w", path, err)
	}
	return nil
}

// LoadApp reads an app record back from the backup. A missing backup
// returns (nil, nil).
func (b *LocalBackup) LoadApp(id string) (*App, error) {
	data, err := os.ReadFile(filepath.Join(b.appsDir, id+".json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read app backup %s: %w", id, err)
	}

	var app App
	if err := json.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("failed to decode app backup %s: %w", id, err)
	}
	return &app, nil
}

// ListAppIDs returns the IDs of all apps present in the backup.
func (b *LocalBackup) ListAppIDs() ([]string, error) {
	entries, err := os.ReadDir(b.appsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup dir: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}
