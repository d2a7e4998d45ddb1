// Package imagegen calls the text-to-image model and persists the results.
// Image generation is strictly best-effort: every failure path resolves to
// "no image" and the pipeline carries on without one.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jonathan/lightapp/internal/registry"
	"github.com/jonathan/lightapp/internal/types"
)

// Image roles within a run. The role is baked into the image ID so a run
// produces at most one image per role.
const (
	RoleCover    = "cover"
	RoleGameOver = "gameover"
)

const (
	maxPromptRunes = 500
	negativePrompt = "text, watermark, ugly, blurry, low quality"

	defaultSize  = "512x512"
	defaultCFG   = 1.0
	defaultSteps = 8

	requestTimeout = 90 * time.Second
	maxRetries     = 2
	retryDelay     = 2 * time.Second
	seedRange      = 100000
)

// Image is a generated image together with the metadata a sink needs to
// persist it.
type Image struct {
	ID     string
	RunID  string
	Role   string
	Prompt string
	PNG    []byte
}

// Sink persists a generated image somewhere.
type Sink interface {
	SaveImage(ctx context.Context, img *Image) error
}

// Client generates images through an OpenAI-style images endpoint and writes
// them to a durable sink plus an optional local backup.
type Client struct {
	profile *registry.ModelProfile
	http    *http.Client
	store   Sink
	backup  Sink

	delay time.Duration
}

// NewClient builds a client for the given text2image profile. A nil profile
// is allowed and produces a client whose Generate always reports no image.
// backup may be nil.
func NewClient(profile *registry.ModelProfile, store, backup Sink) *Client {
	return &Client{
		profile: profile,
		http:    &http.Client{Timeout: requestTimeout},
		store:   store,
		backup:  backup,
		delay:   retryDelay,
	}
}

type imageRequest struct {
	Model             string  `json:"model"`
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt"`
	Size              string  `json:"size"`
	TrueCFGScale      float64 `json:"true_cfg_scale"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	Seed              int     `json:"seed"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// Generate renders one image for the given role and returns its reference,
// or nil when no image could be produced. Only HTTP 500 responses are
// retried; every other failure gives up immediately.
func (c *Client) Generate(ctx context.Context, prompt, runID, role string) *types.ImageRef {
	if c == nil || c.profile == nil {
		log.Printf("[%s] image model not configured, skipping %s image", runID, role)
		return nil
	}
	if prompt == "" {
		return nil
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[%s] retrying %s image (%d/%d) after %s", runID, role, attempt, maxRetries, c.delay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.delay):
			}
		}

		png, retryable := c.render(ctx, prompt, runID, role)
		if png == nil {
			if retryable {
				continue
			}
			return nil
		}
		return c.save(ctx, &Image{
			ID:     runID + "-" + role,
			RunID:  runID,
			Role:   role,
			Prompt: truncateRunes(prompt, 200),
			PNG:    png,
		})
	}
	return nil
}

// render performs one request against the image endpoint. It returns the
// decoded PNG, or nil with retryable set when the upstream answered 500.
func (c *Client) render(ctx context.Context, prompt, runID, role string) (png []byte, retryable bool) {
	body, err := json.Marshal(imageRequest{
		Model:             c.profile.Model,
		Prompt:            truncateRunes(prompt, maxPromptRunes),
		NegativePrompt:    negativePrompt,
		Size:              orDefault(c.profile.Size, defaultSize),
		TrueCFGScale:      orDefaultF(c.profile.TrueCFGScale, defaultCFG),
		NumInferenceSteps: orDefaultI(c.profile.NumInferenceSteps, defaultSteps),
		Seed:              rand.IntN(seedRange),
	})
	if err != nil {
		log.Printf("[%s] image request encode failed: %v", runID, err)
		return nil, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.profile.Endpoint, bytes.NewReader(body))
	if err != nil {
		log.Printf("[%s] image request build failed: %v", runID, err)
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")
	if c.profile.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.profile.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("[%s] image request failed: %v", runID, err)
		return nil, false
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[%s] image response read failed: %v", runID, err)
		return nil, false
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("[%s] image API returned %d: %s", runID, resp.StatusCode, truncateRunes(string(data), 200))
		return nil, resp.StatusCode == http.StatusInternalServerError
	}

	var parsed imageResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		log.Printf("[%s] image response parse failed: %v", runID, err)
		return nil, false
	}
	if len(parsed.Data) == 0 || parsed.Data[0].B64JSON == "" {
		log.Printf("[%s] unexpected image response shape: %s", runID, truncateRunes(string(data), 200))
		return nil, false
	}

	raw, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		log.Printf("[%s] image payload decode failed: %v", runID, err)
		return nil, false
	}
	return raw, false
}

// save writes the image to the durable store and, best-effort, the backup.
// Losing the durable copy means the reference would dangle, so that failure
// discards the image.
func (c *Client) save(ctx context.Context, img *Image) *types.ImageRef {
	if c.store != nil {
		if err := c.store.SaveImage(ctx, img); err != nil {
			log.Printf("[%s] image save failed: %v", img.RunID, err)
			return nil
		}
	}
	if c.backup != nil {
		if err := c.backup.SaveImage(ctx, img); err != nil {
			log.Printf("[%s] image backup failed: %v", img.RunID, err)
		}
	}
	log.Printf("[%s] %s image saved (%dKB)", img.RunID, img.Role, len(img.PNG)/1024)
	return &types.ImageRef{
		ID:   img.ID,
		Path: "/api/images/" + img.ID,
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orDefaultF(f, def float64) float64 {
	if f == 0 {
		return def
	}
	return f
}

func orDefaultI(i, def int) int {
	if i == 0 {
		return def
	}
	return i
}
