package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/jonathan/lightapp/internal/pipeline"
	"github.com/jonathan/lightapp/internal/store"
	"github.com/jonathan/lightapp/internal/types"
)

// recordRun persists a run record when a database is configured. The
// returned func marks the record finished; losing the record never fails
// the request.
func (s *Server) recordRun(ctx context.Context, runTag, prompt string) func(failed bool) {
	if s.db == nil {
		return func(bool) {}
	}
	id, err := s.db.CreateRun(ctx, runTag, prompt)
	if err != nil {
		log.Printf("[%s] failed to record run: %v", runTag, err)
		return func(bool) {}
	}
	return func(failed bool) {
		status := store.RunStatusCompleted
		if failed {
			status = store.RunStatusFailed
		}
		if err := s.db.CompleteRun(ctx, id, status); err != nil {
			log.Printf("[%s] failed to finish run record: %v", runTag, err)
		}
	}
}

// handleGenerateStage runs one named stage against the prompt and whatever
// state the caller already holds.
func (s *Server) handleGenerateStage(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "prompt and stageId are required")
		return
	}

	requestID := pipeline.NewRunID()
	result, err := s.orch.RunStage(r.Context(), &req, requestID)
	if err != nil {
		log.Printf("[%s] stage %s failed: %v", requestID, req.StageID, err)
		s.pipelineError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"requestId":    requestID,
		"stage":        req.StageID,
		"enrichedData": result.Requirement,
		"code":         result.Code,
	})
}

// handleGenerateImages runs the image sub-pipeline against an existing
// requirement document. It always succeeds; missing images are simply
// absent from the returned document.
func (s *Server) handleGenerateImages(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateImagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "enrichedData is required")
		return
	}

	runID := pipeline.NewRunID()
	doc := s.orch.RunImageStage(r.Context(), req.Requirement, req.Model, runID)

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"requestId":    runID,
		"enrichedData": doc,
	})
}

// handleGenerateFull runs an ordered stage list back to back. A mid-sequence
// failure returns 500 with everything produced before the failing stage.
func (s *Server) handleGenerateFull(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateFullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "prompt is required")
		return
	}

	runID := pipeline.NewRunID()
	finish := s.recordRun(r.Context(), runID, req.Prompt)
	result, err := s.orch.RunSequence(r.Context(), req.Prompt, req.Stages, nil, runID)
	finish(err != nil)
	if err != nil {
		s.jsonResponse(w, http.StatusInternalServerError, map[string]any{
			"error":           err.Error(),
			"runId":           runID,
			"results":         result.Results,
			"enrichedData":    result.Requirement,
			"partialArtifact": result.Code,
		})
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"runId":        runID,
		"results":      result.Results,
		"enrichedData": result.Requirement,
		"code":         result.Code,
		"completed":    result.Completed,
	})
}

// handleGenerateStream runs a full sequence while streaming per-stage
// progress over SSE.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateFullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "prompt is required")
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	runID := pipeline.NewRunID()
	sse.WriteEvent("start", map[string]string{"runId": runID}) //nolint:errcheck

	progress := func(event pipeline.ProgressEvent) {
		sse.WriteEvent("progress", event) //nolint:errcheck
	}

	finish := s.recordRun(r.Context(), runID, req.Prompt)
	result, err := s.orch.RunSequence(r.Context(), req.Prompt, req.Stages, progress, runID)
	finish(err != nil)
	if err != nil {
		sse.WriteEvent("error", map[string]any{ //nolint:errcheck
			"error":           err.Error(),
			"runId":           runID,
			"results":         result.Results,
			"enrichedData":    result.Requirement,
			"partialArtifact": result.Code,
		})
		return
	}

	sse.WriteComplete(runID, result)
}

// handleRefine applies a conversational modification to existing code.
func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	var req types.RefineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "instruction and existingCode are required")
		return
	}

	requestID := pipeline.NewRunID()
	code, err := s.orch.Refine(r.Context(), &req, requestID)
	if err != nil {
		log.Printf("[%s] refine failed: %v", requestID, err)
		s.pipelineError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"requestId": requestID,
		"code":      code,
	})
}
