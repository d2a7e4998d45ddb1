// Package types provides type definitions for the structured data that flows
// between pipeline stages and across the HTTP API.
package types

// App type values the planning stage may assign to a request.
const (
	AppTypeGame        = "game"
	AppTypeInteractive = "interactive"
	AppTypeTool        = "tool"
	AppTypeDisplay     = "display"
)

// DefaultAppName is used when the planning stage fails to name the app.
const DefaultAppName = "LightApp"

// UILayout describes the screen structure proposed by the planning stage.
type UILayout struct {
	Type           string   `json:"type,omitempty"`
	MainComponents []string `json:"mainComponents,omitempty"`
	Layout         string   `json:"layout,omitempty"`
}

// InteractionDesign describes how the user is expected to operate the app.
type InteractionDesign struct {
	PrimaryAction string   `json:"primaryAction,omitempty"`
	FeedbackType  string   `json:"feedbackType,omitempty"`
	Gestures      []string `json:"gestures,omitempty"`
}

// VisualStyle captures the look requested by the planning stage.
type VisualStyle struct {
	Theme       string `json:"theme,omitempty"`
	ColorScheme string `json:"colorScheme,omitempty"`
	Typography  string `json:"typography,omitempty"`
}

// RequirementDoc is the structured requirement document produced by the
// planning stage. The orchestrator owns it for the rest of the run; the
// image stage amends it with prompts and image references, and later stages
// read it without modifying it.
type RequirementDoc struct {
	AppName        string            `json:"appName"`
	AppType        string            `json:"appType"`
	AppDescription string            `json:"appDescription"`
	TargetUser     string            `json:"targetUser,omitempty"`
	CoreFeatures   []string          `json:"coreFeatures,omitempty"`
	UserFlow       string            `json:"userFlow,omitempty"`
	UILayout       UILayout          `json:"uiLayout,omitempty"`
	Interaction    InteractionDesign `json:"interactionDesign,omitempty"`
	VisualStyle    VisualStyle       `json:"visualStyle,omitempty"`
	TechnicalNotes string            `json:"technicalNotes,omitempty"`

	// Filled in by the image stage. All of these may stay empty: an absent
	// image is a valid terminal state, not an error.
	CoverImagePrompt    string `json:"coverImagePrompt,omitempty"`
	GameOverImagePrompt string `json:"gameOverImagePrompt,omitempty"`
	RoastText           string `json:"roastText,omitempty"`
	CoverImageID        string `json:"coverImageId,omitempty"`
	GameOverImageID     string `json:"gameOverImageId,omitempty"`
	CoverImagePath      string `json:"coverImagePath,omitempty"`
	GameOverImagePath   string `json:"gameOverImagePath,omitempty"`
}

// IsGame reports whether the requirement document describes a game, which
// is what decides whether the image stage also produces a game-over image.
func (d *RequirementDoc) IsGame() bool {
	return d != nil && d.AppType == AppTypeGame
}

// CodeArtifact holds the three generated payloads plus display metadata.
// Each code-bearing stage consumes the previous artifact and produces a
// replacement value of the same shape; artifacts are never patched in place.
type CodeArtifact struct {
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Markup      string `json:"markup"`
	Style       string `json:"style"`
	Behavior    string `json:"behavior"`
}

// Empty reports whether the artifact carries no generated payload at all.
func (a *CodeArtifact) Empty() bool {
	return a == nil || (a.Markup == "" && a.Style == "" && a.Behavior == "")
}

// ImageRef is the stable reference to a generated image handed to later
// stages in place of the binary payload.
type ImageRef struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}
