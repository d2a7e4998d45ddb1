package pipeline

import (
	"context"
	"log"
	"math/rand/v2"
	"strings"

	"github.com/jonathan/lightapp/internal/imagegen"
	"github.com/jonathan/lightapp/internal/llm"
	"github.com/jonathan/lightapp/internal/registry"
	"github.com/jonathan/lightapp/internal/types"
)

// ImageGenerator renders images for the image sub-pipeline. A nil reference
// result means no image; image generation never fails a run.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, runID, role string) *types.ImageRef
}

// ProgressEvent reports one pipeline step to a streaming observer.
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressFunc is called as a sequenced run advances.
type ProgressFunc func(event ProgressEvent)

// Orchestrator sequences the generation stages and owns the requirement
// document while a run is in flight.
type Orchestrator struct {
	runner *Runner
	images ImageGenerator
}

// NewOrchestrator wires the orchestrator from its collaborators. images may
// be nil when image generation is not configured.
func NewOrchestrator(reg *registry.Registry, client llm.Client, images ImageGenerator) *Orchestrator {
	return &Orchestrator{
		runner: &Runner{Registry: reg, LLM: client},
		images: images,
	}
}

// StageResult is the outcome of a single stage invocation.
type StageResult struct {
	Requirement *types.RequirementDoc `json:"enrichedData,omitempty"`
	Code        *types.CodeArtifact   `json:"code,omitempty"`
}

// RunStage executes one named stage. The planning stage needs only the
// prompt; the image stage needs a requirement document; the code stages
// thread the previous artifact through.
func (o *Orchestrator) RunStage(ctx context.Context, req *types.GenerateStageRequest, requestID string) (*StageResult, error) {
	switch req.StageID {
	case StagePlanning:
		doc, code, err := o.runner.RunPlanning(ctx, req.Prompt, req.ModelKey, requestID)
		if err != nil {
			return nil, err
		}
		return &StageResult{Requirement: doc, Code: code}, nil

	case StageImages:
		doc := o.RunImageStage(ctx, req.Requirement, req.ModelKey, requestID)
		return &StageResult{Requirement: doc}, nil

	case StageBuild, StageHarden, StagePolish:
		code, err := o.runner.RunCodeStage(ctx, req.StageID, req.ModelKey, requestID, req.Requirement, req.ExistingCode, req.Prompt)
		if err != nil {
			return nil, err
		}
		return &StageResult{Requirement: req.Requirement, Code: code}, nil

	default:
		return nil, &registry.UnknownStageError{Stage: req.StageID}
	}
}

// RunImageStage executes the image sub-pipeline: an image prompt per role,
// then the renders, sequentially. Every step is best-effort; whatever
// succeeded is recorded on a copy of the requirement document and whatever
// failed is simply absent. The input document is never modified.
func (o *Orchestrator) RunImageStage(ctx context.Context, doc *types.RequirementDoc, overrideKey, runID string) *types.RequirementDoc {
	if doc == nil {
		doc = &types.RequirementDoc{}
	}
	out := *doc

	prompt, _, err := o.runner.RunImagePrompt(ctx, imagegen.RoleCover, doc, overrideKey, runID)
	if err != nil {
		log.Printf("[%s] cover prompt generation failed: %v", runID, err)
	} else {
		out.CoverImagePrompt = prompt
	}

	if doc.IsGame() {
		prompt, roast, err := o.runner.RunImagePrompt(ctx, imagegen.RoleGameOver, doc, overrideKey, runID)
		if err != nil {
			log.Printf("[%s] game-over prompt generation failed: %v", runID, err)
		} else {
			out.GameOverImagePrompt = prompt
			out.RoastText = roast
		}
	}

	if o.images != nil {
		if out.CoverImagePrompt != "" {
			if ref := o.images.Generate(ctx, out.CoverImagePrompt, runID, imagegen.RoleCover); ref != nil {
				out.CoverImageID = ref.ID
				out.CoverImagePath = ref.Path
			}
		}
		if out.GameOverImagePrompt != "" {
			if ref := o.images.Generate(ctx, out.GameOverImagePrompt, runID, imagegen.RoleGameOver); ref != nil {
				out.GameOverImageID = ref.ID
				out.GameOverImagePath = ref.Path
			}
		}
	}

	log.Printf("[%s][%s] ok: hasCover=%t hasGameOver=%t", runID, StageImages,
		out.CoverImageID != "", out.GameOverImageID != "")
	return &out
}

// Refine applies a conversational instruction to an existing artifact.
func (o *Orchestrator) Refine(ctx context.Context, req *types.RefineRequest, requestID string) (*types.CodeArtifact, error) {
	return o.runner.RunRefine(ctx, req, requestID)
}

// StageOutcome records one stage of a sequenced run.
type StageOutcome struct {
	Stage   string `json:"stage"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SequenceResult is the outcome of a sequenced run. When a stage fails the
// result still carries everything produced up to that point.
type SequenceResult struct {
	Requirement *types.RequirementDoc `json:"enrichedData,omitempty"`
	Code        *types.CodeArtifact   `json:"code,omitempty"`
	Results     []StageOutcome        `json:"results"`
	Completed   bool                  `json:"completed"`
}

// RunSequence executes the named stages in order, threading the requirement
// document and artifact between them. The first failing stage stops the
// sequence; the partial result is returned alongside the error.
func (o *Orchestrator) RunSequence(ctx context.Context, prompt string, stageIDs []string, progress ProgressFunc, runID string) (*SequenceResult, error) {
	if len(stageIDs) == 0 {
		stageIDs = DefaultSequence()
	}

	result := &SequenceResult{}
	emit := func(stage, message string, content any) {
		if progress != nil {
			progress(ProgressEvent{Stage: stage, Message: message, Content: content})
		}
	}

	for _, stageID := range stageIDs {
		log.Printf("[%s] --- running %s ---", runID, stageID)
		emit(stageID, "running", nil)

		var err error
		switch stageID {
		case StagePlanning:
			var doc *types.RequirementDoc
			var code *types.CodeArtifact
			doc, code, err = o.runner.RunPlanning(ctx, prompt, "", runID)
			if err == nil {
				result.Requirement = doc
				result.Code = code
				emit(stageID, "requirements ready", doc)
			}

		case StageImages:
			result.Requirement = o.RunImageStage(ctx, result.Requirement, "", runID)
			emit(stageID, "images ready", result.Requirement)

		case StageBuild, StageHarden, StagePolish:
			var code *types.CodeArtifact
			code, err = o.runner.RunCodeStage(ctx, stageID, "", runID, result.Requirement, result.Code, prompt)
			if err == nil {
				result.Code = code
				emit(stageID, "code ready", nil)
			}

		default:
			// Unknown entries in the requested list are skipped, matching
			// how optimistic frontend stage lists are treated elsewhere.
			log.Printf("[%s] skipping unknown stage %q", runID, stageID)
			continue
		}

		if err != nil {
			result.Results = append(result.Results, StageOutcome{Stage: stageID, Success: false, Error: err.Error()})
			emit(stageID, "failed: "+err.Error(), nil)
			return result, err
		}
		result.Results = append(result.Results, StageOutcome{Stage: stageID, Success: true})
	}

	result.Completed = true
	return result, nil
}

const runIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewRunID returns a short identifier used to correlate log lines and image
// IDs for one run.
func NewRunID() string {
	var sb strings.Builder
	sb.WriteByte('R')
	for i := 0; i < 5; i++ {
		sb.WriteByte(runIDAlphabet[rand.IntN(len(runIDAlphabet))])
	}
	return sb.String()
}
