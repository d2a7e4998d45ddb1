// Package llm performs blocking chat-completion calls against the model
// endpoints declared in the registry. Calls are non-streaming and are never
// retried here: a failed text-completion surfaces to the caller so that
// prompt or model misconfiguration is visible instead of being masked by
// silent retries.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonathan/lightapp/internal/registry"
)

// Message roles used in chat-completion requests.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Default sampling parameters applied when a profile leaves them unset.
const (
	defaultMaxTokens   = 4096
	defaultTemperature = 0.7
)

// Message is one turn of a chat-completion conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is an abstraction over completion providers.
type Client interface {
	// Invoke sends one blocking completion request and returns the raw
	// response text. An empty response is returned as "" rather than an
	// error so the extractor can report a more useful diagnostic.
	Invoke(ctx context.Context, profile *registry.ModelProfile, messages []Message) (string, error)
}

// Invoker dispatches each call to the provider adapter declared on the
// model profile. OpenAI-compatible endpoints are the default.
type Invoker struct {
	chatPath   string
	httpClient *http.Client
}

// NewInvoker creates an Invoker for the given chat-completion path.
// Per-call timeouts come from the model profile, so the shared HTTP client
// carries none.
func NewInvoker(chatPath string) *Invoker {
	if chatPath == "" {
		chatPath = registry.DefaultChatPath
	}
	return &Invoker{
		chatPath:   chatPath,
		httpClient: &http.Client{},
	}
}

// Invoke implements Client.
func (c *Invoker) Invoke(ctx context.Context, profile *registry.ModelProfile, messages []Message) (string, error) {
	switch profile.Provider {
	case registry.ProviderGemini:
		return c.invokeGemini(ctx, profile, messages)
	default:
		return c.invokeChat(ctx, profile, messages)
	}
}

// chatRequest is the OpenAI-compatible request body.
type chatRequest struct {
	Model             string    `json:"model"`
	Messages          []Message `json:"messages"`
	MaxTokens         int       `json:"max_tokens"`
	Stream            bool      `json:"stream"`
	Temperature       float64   `json:"temperature"`
	TopP              *float64  `json:"top_p,omitempty"`
	TopK              *int      `json:"top_k,omitempty"`
	RepetitionPenalty *float64  `json:"repetition_penalty,omitempty"`
}

// chatResponse covers the part of the response the pipeline reads.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Invoker) invokeChat(ctx context.Context, profile *registry.ModelProfile, messages []Message) (string, error) {
	body := chatRequest{
		Model:             profile.Model,
		Messages:          messages,
		MaxTokens:         profile.MaxTokens,
		Stream:            false,
		Temperature:       profile.Temperature,
		TopP:              profile.TopP,
		TopK:              profile.TopK,
		RepetitionPenalty: profile.RepetitionPenalty,
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = defaultMaxTokens
	}
	if body.Temperature == 0 {
		body.Temperature = defaultTemperature
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	if profile.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(profile.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	url := profile.Endpoint + c.chatPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+profile.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{Status: resp.StatusCode, Body: excerpt(string(respBody))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		// The upstream accepted the call but produced nothing. Hand the
		// empty string onward so the extractor reports it with context.
		return "", nil
	}
	return parsed.Choices[0].Message.Content, nil
}
