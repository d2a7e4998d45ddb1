package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/lightapp/internal/extract"
	"github.com/jonathan/lightapp/internal/llm"
	"github.com/jonathan/lightapp/internal/registry"
	"github.com/jonathan/lightapp/internal/schemas"
)

// HTTPStatus returns the appropriate HTTP status code for a pipeline error.
// Unknown stages and models are the caller's mistake; upstream completion
// failures and unusable model output are gateway failures.
func HTTPStatus(err error) int {
	var unknownStage *registry.UnknownStageError
	var unknownModel *registry.UnknownModelError
	var upstream *llm.UpstreamError
	var extractErr *extract.Error
	var validationErr *schemas.ValidationError

	switch {
	case errors.As(err, &unknownStage), errors.As(err, &unknownModel):
		return http.StatusBadRequest
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.As(err, &extractErr), errors.As(err, &validationErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
