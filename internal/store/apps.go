package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/lightapp/internal/types"
)

// SaveApp stores a shareable app and returns its record.
func (db *DB) SaveApp(ctx context.Context, app *App) error {
	code, err := json.Marshal(app.Code)
	if err != nil {
		return fmt.Errorf("failed to marshal app code: %w", err)
	}

	var requirement []byte
	if app.Requirement != nil {
		requirement, err = json.Marshal(app.Requirement)
		if err != nil {
			return fmt.Errorf("failed to marshal requirement document: %w", err)
		}
	}

	err = db.pool.QueryRow(ctx,
		`INSERT INTO apps (id, name, description, code, requirement)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		app.ID, app.Name, app.Description, code, requirement,
	).Scan(&app.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save app %s: %w", app.ID, err)
	}
	return nil
}

// GetApp retrieves a saved app by ID. A missing app returns (nil, nil).
func (db *DB) GetApp(ctx context.Context, id string) (*App, error) {
	var app App
	var code, requirement []byte

	err := db.pool.QueryRow(ctx,
		`SELECT id, name, description, code, requirement, created_at
		 FROM apps WHERE id = $1`,
		id,
	).Scan(&app.ID, &app.Name, &app.Description, &code, &requirement, &app.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get app %s: %w", id, err)
	}

	app.Code = &types.CodeArtifact{}
	if err := json.Unmarshal(code, app.Code); err != nil {
		return nil, fmt.Errorf("failed to decode app code %s: %w", id, err)
	}
	if len(requirement) > 0 {
		app.Requirement = &types.RequirementDoc{}
		if err := json.Unmarshal(requirement, app.Requirement); err != nil {
			return nil, fmt.Errorf("failed to decode requirement %s: %w", id, err)
		}
	}
	return &app, nil
}

// ListApps returns the most recently saved apps, newest first.
func (db *DB) ListApps(ctx context.Context, limit int) ([]AppSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, name, description, created_at
		 FROM apps ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}
	defer rows.Close()

	var apps []AppSummary
	for rows.Next() {
		var app AppSummary
		if err := rows.Scan(&app.ID, &app.Name, &app.Description, &app.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan app row: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// DeleteApp removes a saved app. Deleting an unknown ID is not an error.
func (db *DB) DeleteApp(ctx context.Context, id string) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM apps WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete app %s: %w", id, err)
	}
	return nil
}

// FeatureApp promotes a saved app into the featured gallery, updating the
// entry if it is already featured.
func (db *DB) FeatureApp(ctx context.Context, appID, category string, tags []string, order int) error {
	if tags == nil {
		tags = []string{}
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO featured_apps (app_id, category, tags, sort_order)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (app_id) DO UPDATE SET category = $2, tags = $3, sort_order = $4, featured_at = NOW()`,
		appID, category, tags, order,
	)
	if err != nil {
		return fmt.Errorf("failed to feature app %s: %w", appID, err)
	}
	return nil
}

// UnfeatureApp removes an app from the featured gallery.
func (db *DB) UnfeatureApp(ctx context.Context, appID string) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM featured_apps WHERE app_id = $1`, appID)
	if err != nil {
		return fmt.Errorf("failed to unfeature app %s: %w", appID, err)
	}
	return nil
}

// ListFeatured returns the featured gallery ordered by sort order, then
// recency.
func (db *DB) ListFeatured(ctx context.Context) ([]FeaturedApp, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT a.id, a.name, a.description, a.created_at,
		        f.category, f.tags, f.sort_order, f.featured_at
		 FROM featured_apps f
		 JOIN apps a ON a.id = f.app_id
		 ORDER BY f.sort_order ASC, f.featured_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list featured apps: %w", err)
	}
	defer rows.Close()

	var featured []FeaturedApp
	for rows.Next() {
		var f FeaturedApp
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.CreatedAt,
			&f.Category, &f.Tags, &f.Order, &f.FeaturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan featured row: %w", err)
		}
		featured = append(featured, f)
	}
	return featured, rows.Err()
}
