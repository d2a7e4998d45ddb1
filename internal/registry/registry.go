// Package registry loads model and stage configuration and resolves each
// pipeline stage to the concrete model profile it should call. The registry
// is built once at process start and never mutated afterwards; handlers
// share a single instance by reference.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// DefaultChatPath is the chat-completion path appended to a text model's
// endpoint when the config file does not override it.
const DefaultChatPath = "/v1/chat/completions"

// ImageModelKey names the model profile used by the image sub-pipeline.
const ImageModelKey = "text2image"

// Provider values a model profile may declare.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ModelProfile holds the connection and sampling parameters for one model.
// One profile may serve several stages.
type ModelProfile struct {
	Key               string   `json:"-"`
	Name              string   `json:"name"`
	DisplayName       string   `json:"displayName,omitempty"`
	Provider          string   `json:"provider,omitempty"`
	Endpoint          string   `json:"endpoint"`
	APIKey            string   `json:"apiKey"`
	Model             string   `json:"model"`
	MaxTokens         int      `json:"max_tokens,omitempty"`
	Temperature       float64  `json:"temperature,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
	TopK              *int     `json:"top_k,omitempty"`
	RepetitionPenalty *float64 `json:"repetition_penalty,omitempty"`
	TimeoutSeconds    int      `json:"timeout_seconds,omitempty"`

	// Image-generation parameters, only meaningful on the text2image profile.
	Size              string  `json:"size,omitempty"`
	TrueCFGScale      float64 `json:"true_cfg_scale,omitempty"`
	NumInferenceSteps int     `json:"num_inference_steps,omitempty"`
}

// Label returns the name shown in API responses, preferring DisplayName.
func (m *ModelProfile) Label() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Name
}

// StageConfig declares one pipeline stage: its default model and the set of
// models a caller may select instead.
type StageConfig struct {
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	ModelKey        string   `json:"modelKey"`
	AvailableModels []string `json:"availableModels,omitempty"`
}

// file is the raw on-disk configuration shape.
type file struct {
	API struct {
		ChatPath string `json:"chatPath,omitempty"`
	} `json:"api"`
	Models map[string]*ModelProfile `json:"models"`
	Stages map[string]*StageConfig  `json:"stages"`
}

// localFile is the shape of the local overlay holding endpoints and
// credentials that must not live in the checked-in config.
type localFile struct {
	Models map[string]struct {
		Endpoint string `json:"endpoint,omitempty"`
		APIKey   string `json:"apiKey,omitempty"`
	} `json:"models"`
}

// Registry resolves stage identifiers to model profiles. Immutable after Load.
type Registry struct {
	chatPath string
	models   map[string]*ModelProfile
	stages   map[string]*StageConfig
}

// Load reads the config file, applies the local overlay when present, and
// validates that every stage's default model exists. A missing local
// overlay path is not an error; a declared-but-unreadable one is.
func Load(path, localPath string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg file
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if localPath != "" {
		if err := applyLocalOverlay(&cfg, localPath); err != nil {
			return nil, err
		}
	}

	r := &Registry{
		chatPath: cfg.API.ChatPath,
		models:   cfg.Models,
		stages:   cfg.Stages,
	}
	if r.chatPath == "" {
		r.chatPath = DefaultChatPath
	}
	if r.models == nil {
		r.models = map[string]*ModelProfile{}
	}
	if r.stages == nil {
		r.stages = map[string]*StageConfig{}
	}
	for key, m := range r.models {
		m.Key = key
	}

	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func applyLocalOverlay(cfg *file, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read local config %s: %w", path, err)
	}

	var local localFile
	if err := json.Unmarshal(data, &local); err != nil {
		return fmt.Errorf("failed to parse local config %s: %w", path, err)
	}

	for key, overlay := range local.Models {
		m, ok := cfg.Models[key]
		if !ok {
			continue
		}
		if overlay.Endpoint != "" {
			m.Endpoint = overlay.Endpoint
		}
		if overlay.APIKey != "" {
			m.APIKey = overlay.APIKey
		}
	}
	return nil
}

// validate catches startup-class configuration mistakes: a stage pointing at
// a model that does not exist is fatal, never retried.
func (r *Registry) validate() error {
	for stageID, stage := range r.stages {
		if stage.ModelKey == "" {
			return &UnknownModelError{Model: "", Stage: stageID}
		}
		if _, ok := r.models[stage.ModelKey]; !ok {
			return &UnknownModelError{Model: stage.ModelKey, Stage: stageID}
		}
	}
	return nil
}

// Resolve returns the model profile a stage call should use. A known
// explicit override wins outright; an unknown override is ignored and the
// stage default applies, which lets the frontend offer optimistic model
// lists without breaking generation.
func (r *Registry) Resolve(stageID, overrideKey string) (*ModelProfile, error) {
	if overrideKey != "" {
		if m, ok := r.models[overrideKey]; ok {
			return m, nil
		}
	}

	stage, ok := r.stages[stageID]
	if !ok {
		return nil, &UnknownStageError{Stage: stageID}
	}
	m, ok := r.models[stage.ModelKey]
	if !ok {
		return nil, &UnknownModelError{Model: stage.ModelKey, Stage: stageID}
	}
	return m, nil
}

// Stage returns the configuration of a declared stage.
func (r *Registry) Stage(stageID string) (*StageConfig, error) {
	stage, ok := r.stages[stageID]
	if !ok {
		return nil, &UnknownStageError{Stage: stageID}
	}
	return stage, nil
}

// Model returns a model profile by key.
func (r *Registry) Model(key string) (*ModelProfile, bool) {
	m, ok := r.models[key]
	return m, ok
}

// ImageProfile returns the text-to-image profile, or nil when image
// generation is not configured. The pipeline treats a missing profile as
// "skip images", not as an error.
func (r *Registry) ImageProfile() *ModelProfile {
	return r.models[ImageModelKey]
}

// ChatPath returns the chat-completion path appended to text endpoints.
func (r *Registry) ChatPath() string {
	return r.chatPath
}

// ModelView is the credential-free description of a model exposed to the
// frontend via the pipeline-config endpoint.
type ModelView struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// StageView is the frontend-facing description of a stage.
type StageView struct {
	Name            string   `json:"name"`
	DefaultModel    string   `json:"defaultModel"`
	AvailableModels []string `json:"availableModels"`
}

// View returns the pipeline configuration stripped of endpoints and
// credentials, for the frontend.
func (r *Registry) View() (map[string]ModelView, map[string]StageView) {
	models := make(map[string]ModelView, len(r.models))
	allKeys := make([]string, 0, len(r.models))
	for key, m := range r.models {
		models[key] = ModelView{Key: key, Name: m.Name, DisplayName: m.Label()}
		allKeys = append(allKeys, key)
	}
	sort.Strings(allKeys)

	stages := make(map[string]StageView, len(r.stages))
	for key, s := range r.stages {
		available := s.AvailableModels
		if len(available) == 0 {
			available = allKeys
		}
		stages[key] = StageView{
			Name:            s.Name,
			DefaultModel:    s.ModelKey,
			AvailableModels: available,
		}
	}
	return models, stages
}
