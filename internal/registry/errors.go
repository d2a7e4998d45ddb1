package registry

import "fmt"

// UnknownStageError indicates a stage identifier that is not declared in
// the configuration. This is a caller or configuration mistake and is never
// retried.
type UnknownStageError struct {
	Stage string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage: %s", e.Stage)
}

// UnknownModelError indicates a stage whose default model key is missing
// from the models section. Surfaced at load time as a startup failure.
type UnknownModelError struct {
	Model string
	Stage string
}

func (e *UnknownModelError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("stage %s declares no model key", e.Stage)
	}
	return fmt.Sprintf("unknown model %q for stage %s", e.Model, e.Stage)
}
