package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jonathan/lightapp/internal/registry"
)

// invokeGemini serves model profiles that declare the Gemini provider. The
// SDK client is created per call and closed when the call returns, matching
// how short-lived stage invocations use it.
func (c *Invoker) invokeGemini(ctx context.Context, profile *registry.ModelProfile, messages []Message) (string, error) {
	if profile.APIKey == "" {
		return "", fmt.Errorf("gemini profile %s has no API key", profile.Key)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(profile.APIKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer func() { _ = client.Close() }()

	model := client.GenerativeModel(profile.Model)
	temp := float32(profile.Temperature)
	if temp == 0 {
		temp = defaultTemperature
	}
	model.SetTemperature(temp)
	if profile.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(profile.MaxTokens))
	}

	system, user := splitMessages(messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return geminiText(resp), nil
}

// splitMessages folds a two-message prompt into Gemini's system-instruction
// plus user-content shape. Extra user turns are concatenated.
func splitMessages(messages []Message) (system, user string) {
	var users []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = m.Content
			continue
		}
		users = append(users, m.Content)
	}
	return system, strings.Join(users, "\n\n")
}

// geminiText extracts the text parts of a Gemini response. An empty
// response yields "" so the extractor reports the failure.
func geminiText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	return strings.Join(parts, "")
}
