package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jonathan/lightapp/internal/extract"
	"github.com/jonathan/lightapp/internal/imagegen"
	"github.com/jonathan/lightapp/internal/llm"
	"github.com/jonathan/lightapp/internal/registry"
	"github.com/jonathan/lightapp/internal/schemas"
	"github.com/jonathan/lightapp/internal/types"
)

// Runner executes the individual text stages: it resolves the model,
// performs the completion, extracts the JSON payload, and validates it
// before anything downstream trusts it.
type Runner struct {
	Registry *registry.Registry
	LLM      llm.Client
}

// codeOutput is the JSON shape the code-bearing stages are asked to emit.
type codeOutput struct {
	AppName     string `json:"appName"`
	Description string `json:"description"`
	HTML        string `json:"html"`
	CSS         string `json:"css"`
	JS          string `json:"js"`
}

// complete runs one completion for a stage and returns the validated JSON
// document extracted from the response.
func (r *Runner) complete(ctx context.Context, stageID, overrideKey, requestID, schema string, messages []llm.Message) (json.RawMessage, error) {
	profile, err := r.Registry.Resolve(stageID, overrideKey)
	if err != nil {
		return nil, err
	}

	log.Printf("[%s][%s] calling %s (%s)", requestID, stageID, profile.Name, profile.Model)
	raw, err := r.LLM.Invoke(ctx, profile, messages)
	if err != nil {
		return nil, err
	}
	log.Printf("[%s][%s] response length: %d", requestID, stageID, len(raw))

	doc, err := extract.Extract(raw)
	if err != nil {
		return nil, err
	}
	if err := schemas.Validate(schema, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// RunPlanning executes the planning stage and returns the completed
// requirement document, with defaults filled for anything the model left
// out, plus the initial artifact. The planning stage sometimes sketches
// code payloads alongside the requirement document; they are carried into
// the artifact so later stages merge onto them instead of starting empty.
func (r *Runner) RunPlanning(ctx context.Context, userPrompt, overrideKey, requestID string) (*types.RequirementDoc, *types.CodeArtifact, error) {
	messages, err := planningMessages(userPrompt)
	if err != nil {
		return nil, nil, err
	}

	raw, err := r.complete(ctx, StagePlanning, overrideKey, requestID, schemas.Requirement, messages)
	if err != nil {
		return nil, nil, err
	}

	var doc types.RequirementDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to decode requirement document: %w", err)
	}
	normalizeDoc(&doc)

	var out codeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, nil, fmt.Errorf("failed to decode planning payload: %w", err)
	}

	log.Printf("[%s][%s] ok: appName=%s appType=%s", requestID, StagePlanning, doc.AppName, doc.AppType)
	return &doc, mergeCode(&out, nil, &doc), nil
}

// RunCodeStage executes one code-bearing stage (build, harden, or polish)
// and returns the next artifact. Payloads the model omitted keep their
// previous values, so a stage can answer with only the files it changed.
func (r *Runner) RunCodeStage(ctx context.Context, stageID, overrideKey, requestID string, doc *types.RequirementDoc, prev *types.CodeArtifact, userPrompt string) (*types.CodeArtifact, error) {
	var messages []llm.Message
	var err error
	switch stageID {
	case StageBuild:
		messages, err = buildMessages(doc, userPrompt)
	case StageHarden:
		messages, err = hardenMessages(prev, doc)
	case StagePolish:
		messages, err = polishMessages(prev, doc)
	default:
		return nil, &registry.UnknownStageError{Stage: stageID}
	}
	if err != nil {
		return nil, err
	}

	raw, err := r.complete(ctx, stageID, overrideKey, requestID, schemas.CodeFragment, messages)
	if err != nil {
		return nil, err
	}

	var out codeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode code payload: %w", err)
	}

	log.Printf("[%s][%s] ok", requestID, stageID)
	return mergeCode(&out, prev, doc), nil
}

// RunRefine applies a conversational modification instruction to an
// existing artifact via the refinement stage.
func (r *Runner) RunRefine(ctx context.Context, req *types.RefineRequest, requestID string) (*types.CodeArtifact, error) {
	messages, err := refineMessages(req.ExistingCode, req.Instruction, req.Requirement, req.OriginalPrompt)
	if err != nil {
		return nil, err
	}

	raw, err := r.complete(ctx, StageRefine, req.ModelKey, requestID, schemas.CodeFragment, messages)
	if err != nil {
		return nil, err
	}

	var out codeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode code payload: %w", err)
	}

	log.Printf("[%s][%s] refinement ok", requestID, StageRefine)
	return mergeCode(&out, req.ExistingCode, req.Requirement), nil
}

// imagePromptOutput is the JSON shape of the image-prompt steps.
type imagePromptOutput struct {
	Prompt    string `json:"prompt"`
	RoastText string `json:"roastText"`
}

// RunImagePrompt asks the text model for an image-generation prompt for
// the given role. The game-over role also returns the taunt line.
func (r *Runner) RunImagePrompt(ctx context.Context, role string, doc *types.RequirementDoc, overrideKey, requestID string) (prompt, roast string, err error) {
	var messages []llm.Message
	if role == imagegen.RoleGameOver {
		messages, err = gameOverPromptMessages(doc)
	} else {
		messages, err = coverPromptMessages(doc)
	}
	if err != nil {
		return "", "", err
	}

	raw, err := r.complete(ctx, StageImages, overrideKey, requestID+"-"+role, schemas.ImagePrompt, messages)
	if err != nil {
		return "", "", err
	}

	var out imagePromptOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", "", fmt.Errorf("failed to decode image prompt: %w", err)
	}
	return out.Prompt, out.RoastText, nil
}

// normalizeDoc fills the defaults the rest of the pipeline relies on.
// An unrecognized app type degrades to interactive rather than failing
// the run.
func normalizeDoc(doc *types.RequirementDoc) {
	if doc.AppName == "" {
		doc.AppName = types.DefaultAppName
	}
	switch doc.AppType {
	case types.AppTypeGame, types.AppTypeInteractive, types.AppTypeTool, types.AppTypeDisplay:
	default:
		doc.AppType = types.AppTypeInteractive
	}
}

// mergeCode folds a stage's output into the previous artifact. Omitted
// payloads keep their previous values; display metadata prefers the
// requirement document, then the previous artifact.
func mergeCode(out *codeOutput, prev *types.CodeArtifact, doc *types.RequirementDoc) *types.CodeArtifact {
	if prev == nil {
		prev = &types.CodeArtifact{}
	}

	displayName := out.AppName
	if doc != nil && doc.AppName != "" {
		displayName = doc.AppName
	}
	if displayName == "" {
		displayName = fallback(prev.DisplayName, types.DefaultAppName)
	}

	description := out.Description
	if doc != nil && doc.AppDescription != "" {
		description = doc.AppDescription
	}
	if description == "" {
		description = prev.Description
	}

	return &types.CodeArtifact{
		DisplayName: displayName,
		Description: description,
		Markup:      fallback(out.HTML, prev.Markup),
		Style:       fallback(out.CSS, prev.Style),
		Behavior:    fallback(out.JS, prev.Behavior),
	}
}
