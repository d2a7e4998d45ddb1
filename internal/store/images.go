package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/lightapp/internal/imagegen"
)

// SaveImage stores a generated image, replacing any previous image with the
// same ID. It implements imagegen.Sink.
func (db *DB) SaveImage(ctx context.Context, img *imagegen.Image) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO images (id, run_id, role, prompt, data)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET prompt = $4, data = $5, created_at = NOW()`,
		img.ID, img.RunID, img.Role, img.Prompt, img.PNG,
	)
	if err != nil {
		return fmt.Errorf("failed to save image %s: %w", img.ID, err)
	}
	return nil
}

// GetImage retrieves a stored image by ID. A missing image returns
// (nil, nil).
func (db *DB) GetImage(ctx context.Context, id string) (*ImageRecord, error) {
	var img ImageRecord
	err := db.pool.QueryRow(ctx,
		`SELECT id, run_id, role, prompt, content_type, data, created_at
		 FROM images WHERE id = $1`,
		id,
	).Scan(&img.ID, &img.RunID, &img.Role, &img.Prompt, &img.ContentType, &img.Data, &img.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image %s: %w", id, err)
	}
	return &img, nil
}
