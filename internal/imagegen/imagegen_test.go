package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/lightapp/internal/registry"
)

type memorySink struct {
	mu     sync.Mutex
	images []*Image
	err    error
}

func (s *memorySink) SaveImage(_ context.Context, img *Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.images = append(s.images, img)
	return nil
}

func imageBody(t *testing.T, png []byte) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
	})
	require.NoError(t, err)
	return string(body)
}

func testClient(endpoint string, store, backup Sink) *Client {
	c := NewClient(&registry.ModelProfile{
		Key:      registry.ImageModelKey,
		Endpoint: endpoint,
		Model:    "qwen-image",
	}, store, backup)
	c.delay = 10 * time.Millisecond
	return c
}

func TestGenerate_Success(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	var gotReq imageRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, imageBody(t, png))
	}))
	defer server.Close()

	store := &memorySink{}
	backup := &memorySink{}
	ref := testClient(server.URL, store, backup).Generate(context.Background(), "a pixel art rocket", "R1a2b3", RoleCover)

	require.NotNil(t, ref)
	assert.Equal(t, "R1a2b3-cover", ref.ID)
	assert.Equal(t, "/api/images/R1a2b3-cover", ref.Path)

	assert.Equal(t, "qwen-image", gotReq.Model)
	assert.Equal(t, "a pixel art rocket", gotReq.Prompt)
	assert.Equal(t, "text, watermark, ugly, blurry, low quality", gotReq.NegativePrompt)
	assert.Equal(t, "512x512", gotReq.Size)
	assert.Equal(t, 1.0, gotReq.TrueCFGScale)
	assert.Equal(t, 8, gotReq.NumInferenceSteps)

	require.Len(t, store.images, 1)
	assert.Equal(t, png, store.images[0].PNG)
	require.Len(t, backup.images, 1)
}

func TestGenerate_Retries500ThenSucceeds(t *testing.T) {
	var attempts int
	seeds := map[int]bool{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req imageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seeds[req.Seed] = true

		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, imageBody(t, []byte("png")))
	}))
	defer server.Close()

	store := &memorySink{}
	ref := testClient(server.URL, store, nil).Generate(context.Background(), "prompt", "R1", RoleGameOver)

	require.NotNil(t, ref)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "R1-gameover", ref.ID)
}

func TestGenerate_GivesUpAfterRetries(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ref := testClient(server.URL, &memorySink{}, nil).Generate(context.Background(), "prompt", "R1", RoleCover)

	assert.Nil(t, ref)
	assert.Equal(t, 3, attempts)
}

func TestGenerate_Non500NotRetried(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	ref := testClient(server.URL, &memorySink{}, nil).Generate(context.Background(), "prompt", "R1", RoleCover)

	assert.Nil(t, ref)
	assert.Equal(t, 1, attempts)
}

func TestGenerate_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "not json at all")
	}))
	defer server.Close()

	ref := testClient(server.URL, &memorySink{}, nil).Generate(context.Background(), "prompt", "R1", RoleCover)
	assert.Nil(t, ref)
}

func TestGenerate_EmptyDataArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data": []}`)
	}))
	defer server.Close()

	ref := testClient(server.URL, &memorySink{}, nil).Generate(context.Background(), "prompt", "R1", RoleCover)
	assert.Nil(t, ref)
}

func TestGenerate_PromptTruncatedTo500(t *testing.T) {
	long := make([]byte, 700)
	for i := range long {
		long[i] = 'a'
	}

	var gotReq imageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, imageBody(t, []byte("png")))
	}))
	defer server.Close()

	testClient(server.URL, &memorySink{}, nil).Generate(context.Background(), string(long), "R1", RoleCover)
	assert.Len(t, gotReq.Prompt, 500)
}

func TestGenerate_DurableSaveFailureDiscardsImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, imageBody(t, []byte("png")))
	}))
	defer server.Close()

	store := &memorySink{err: fmt.Errorf("connection refused")}
	ref := testClient(server.URL, store, nil).Generate(context.Background(), "prompt", "R1", RoleCover)
	assert.Nil(t, ref)
}

func TestGenerate_BackupFailureTolerated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, imageBody(t, []byte("png")))
	}))
	defer server.Close()

	store := &memorySink{}
	backup := &memorySink{err: fmt.Errorf("disk full")}
	ref := testClient(server.URL, store, backup).Generate(context.Background(), "prompt", "R1", RoleCover)

	require.NotNil(t, ref)
	assert.Len(t, store.images, 1)
}

func TestGenerate_NoProfileSkips(t *testing.T) {
	c := NewClient(nil, &memorySink{}, nil)
	assert.Nil(t, c.Generate(context.Background(), "prompt", "R1", RoleCover))
}

func TestGenerate_EmptyPromptSkips(t *testing.T) {
	c := testClient("http://unreachable.invalid", &memorySink{}, nil)
	assert.Nil(t, c.Generate(context.Background(), "", "R1", RoleCover))
}
