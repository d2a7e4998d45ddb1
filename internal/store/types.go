package store

import (
	"time"

	"github.com/jonathan/lightapp/internal/types"
)

// App is a saved, shareable app.
type App struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Code        *types.CodeArtifact   `json:"code"`
	Requirement *types.RequirementDoc `json:"enrichedData,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// AppSummary is the listing view of a saved app, without the code payloads.
type AppSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ImageRecord is a stored generated image.
type ImageRecord struct {
	ID          string    `json:"id"`
	RunID       string    `json:"runId"`
	Role        string    `json:"role"`
	Prompt      string    `json:"prompt,omitempty"`
	ContentType string    `json:"contentType"`
	Data        []byte    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FeaturedApp is a saved app promoted to the featured gallery.
type FeaturedApp struct {
	AppSummary
	Category   string    `json:"category,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Order      int       `json:"order"`
	FeaturedAt time.Time `json:"featuredAt"`
}

// Run statuses recorded for pipeline runs.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)
