package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/lightapp/internal/registry"
)

func testProfile(endpoint string) *registry.ModelProfile {
	topP := 0.9
	return &registry.ModelProfile{
		Key:         "fast",
		Name:        "Fast Model",
		Endpoint:    endpoint,
		APIKey:      "test-key",
		Model:       "fast-1",
		MaxTokens:   2048,
		Temperature: 0.5,
		TopP:        &topP,
	}
}

func testMessages() []Message {
	return []Message{
		{Role: RoleSystem, Content: "You are a planner."},
		{Role: RoleUser, Content: "a tap-to-jump game"},
	}
}

func TestInvoke_SendsExpectedRequest(t *testing.T) {
	var captured map[string]any
	var authHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"appName\":\"JumpIt\"}"}}]}`))
	}))
	defer server.Close()

	client := NewInvoker("/v1/chat/completions")
	content, err := client.Invoke(context.Background(), testProfile(server.URL), testMessages())
	require.NoError(t, err)
	assert.Equal(t, `{"appName":"JumpIt"}`, content)

	assert.Equal(t, "Bearer test-key", authHeader)
	assert.Equal(t, "fast-1", captured["model"])
	assert.Equal(t, false, captured["stream"])
	assert.Equal(t, float64(2048), captured["max_tokens"])
	assert.Equal(t, 0.5, captured["temperature"])
	assert.Equal(t, 0.9, captured["top_p"])
	assert.NotContains(t, captured, "top_k")

	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	first := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
}

func TestInvoke_DefaultSamplingParameters(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	profile := &registry.ModelProfile{Endpoint: server.URL, Model: "m"}
	_, err := NewInvoker("").Invoke(context.Background(), profile, testMessages())
	require.NoError(t, err)

	assert.Equal(t, float64(4096), captured["max_tokens"])
	assert.Equal(t, 0.7, captured["temperature"])
}

func TestInvoke_UpstreamErrorCarriesStatusAndExcerpt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	_, err := NewInvoker("").Invoke(context.Background(), testProfile(server.URL), testMessages())
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusBadGateway, upstreamErr.Status)
	assert.Contains(t, upstreamErr.Body, "upstream exploded")
}

func TestInvoke_EmptyChoicesReturnsEmptyString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	content, err := NewInvoker("").Invoke(context.Background(), testProfile(server.URL), testMessages())
	require.NoError(t, err)
	assert.Equal(t, "", content)
}

func TestSplitMessages(t *testing.T) {
	system, user := splitMessages([]Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "first"},
		{Role: RoleUser, Content: "second"},
	})
	assert.Equal(t, "sys", system)
	assert.Equal(t, "first\n\nsecond", user)
}
