package types

import "github.com/go-playground/validator/v10"

// GenerateStageRequest asks the orchestrator to run a single named stage.
// The JSON field names are part of the public API consumed by the editor
// frontend and are kept stable.
type GenerateStageRequest struct {
	Prompt       string          `json:"prompt" validate:"required"`
	StageID      string          `json:"stageId" validate:"required"`
	ExistingCode *CodeArtifact   `json:"existingCode,omitempty"`
	Requirement  *RequirementDoc `json:"enrichedData,omitempty"`
	ModelKey     string          `json:"modelKey,omitempty"`
}

// GenerateImagesRequest asks the orchestrator to run the image sub-pipeline
// against an existing requirement document.
type GenerateImagesRequest struct {
	Requirement *RequirementDoc `json:"enrichedData" validate:"required"`
	Model       string          `json:"model,omitempty"`
}

// GenerateFullRequest asks the orchestrator to run an ordered list of
// stages back to back, threading the artifact between them.
type GenerateFullRequest struct {
	Prompt string   `json:"prompt" validate:"required"`
	Stages []string `json:"stages,omitempty"`
}

// RefineRequest carries a conversational modification instruction for the
// refinement stage.
type RefineRequest struct {
	Instruction    string          `json:"instruction" validate:"required"`
	ExistingCode   *CodeArtifact   `json:"existingCode" validate:"required"`
	Requirement    *RequirementDoc `json:"enrichedData,omitempty"`
	OriginalPrompt string          `json:"originalPrompt,omitempty"`
	ModelKey       string          `json:"modelKey,omitempty"`
}

// SaveAppRequest persists a finished artifact as a shareable app.
type SaveAppRequest struct {
	Code        *CodeArtifact   `json:"code" validate:"required"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Requirement *RequirementDoc `json:"enrichedData,omitempty"`
}

// FeatureAppRequest promotes a saved app into the featured store.
type FeatureAppRequest struct {
	ID       string   `json:"id" validate:"required"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Order    int      `json:"order,omitempty"`
}

// Validate validates the GenerateStageRequest using the validator.
func (r *GenerateStageRequest) Validate() error {
	return validator.New().Struct(r)
}

// Validate validates the GenerateImagesRequest using the validator.
func (r *GenerateImagesRequest) Validate() error {
	return validator.New().Struct(r)
}

// Validate validates the GenerateFullRequest using the validator.
func (r *GenerateFullRequest) Validate() error {
	return validator.New().Struct(r)
}

// Validate validates the RefineRequest using the validator.
func (r *RefineRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return err
	}
	if r.ExistingCode != nil && r.ExistingCode.Empty() {
		return &EmptyCodeError{}
	}
	return nil
}

// Validate validates the SaveAppRequest using the validator.
func (r *SaveAppRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return err
	}
	if r.Code != nil && r.Code.Empty() {
		return &EmptyCodeError{}
	}
	return nil
}

// Validate validates the FeatureAppRequest using the validator.
func (r *FeatureAppRequest) Validate() error {
	return validator.New().Struct(r)
}

// EmptyCodeError indicates a request referenced an artifact with no payloads.
type EmptyCodeError struct{}

func (e *EmptyCodeError) Error() string {
	return "code artifact has no markup, style, or behavior payload"
}
