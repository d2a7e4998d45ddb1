package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/lightapp/internal/llm"
	"github.com/jonathan/lightapp/internal/registry"
	"github.com/jonathan/lightapp/internal/types"
)

const testConfig = `{
  "api": {"chatPath": "/v1/chat/completions"},
  "models": {
    "main": {"name": "Main", "endpoint": "http://main.test", "apiKey": "k", "model": "main-model"},
    "alt": {"name": "Alt", "endpoint": "http://alt.test", "apiKey": "k", "model": "alt-model"}
  },
  "stages": {
    "stage1": {"name": "PM", "modelKey": "main"},
    "stage1_5": {"name": "Artist", "modelKey": "main"},
    "stage2": {"name": "Dev", "modelKey": "main"},
    "stage3": {"name": "Tester", "modelKey": "main"},
    "stage4": {"name": "Designer", "modelKey": "main"},
    "stage5": {"name": "Refine", "modelKey": "main"}
  }
}`

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))
	reg, err := registry.Load(path, "")
	require.NoError(t, err)
	return reg
}

type stubCall struct {
	profile  *registry.ModelProfile
	messages []llm.Message
}

// stubLLM replays canned responses in order. When the list runs out it
// repeats the final entry.
type stubLLM struct {
	responses []string
	err       error
	calls     []stubCall
}

func (s *stubLLM) Invoke(_ context.Context, profile *registry.ModelProfile, messages []llm.Message) (string, error) {
	s.calls = append(s.calls, stubCall{profile: profile, messages: messages})
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", nil
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

type stubImages struct {
	fail  map[string]bool
	calls []string
}

func (s *stubImages) Generate(_ context.Context, prompt, runID, role string) *types.ImageRef {
	s.calls = append(s.calls, role)
	if s.fail[role] || prompt == "" {
		return nil
	}
	id := runID + "-" + role
	return &types.ImageRef{ID: id, Path: "/api/images/" + id}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestRunStage_Planning(t *testing.T) {
	doc := map[string]any{
		"appName":      "JumpIt",
		"appType":      "game",
		"coreFeatures": []string{"tap to jump", "score"},
	}
	client := &stubLLM{responses: []string{
		"<think>Let me plan this game.</think>\n```json\n" + mustJSON(t, doc) + "\n```",
	}}
	o := NewOrchestrator(testRegistry(t), client, nil)

	result, err := o.RunStage(context.Background(), &types.GenerateStageRequest{
		Prompt:  "a tap-to-jump game",
		StageID: StagePlanning,
	}, "Rtest1")
	require.NoError(t, err)

	require.NotNil(t, result.Requirement)
	assert.Equal(t, "JumpIt", result.Requirement.AppName)
	assert.True(t, result.Requirement.IsGame())
	assert.Equal(t, "JumpIt", result.Code.DisplayName)
	assert.True(t, result.Code.Empty())

	require.Len(t, client.calls, 1)
	assert.Equal(t, "main-model", client.calls[0].profile.Model)
	assert.Equal(t, llm.RoleSystem, client.calls[0].messages[0].Role)
	assert.Contains(t, client.calls[0].messages[1].Content, "a tap-to-jump game")
}

func TestRunStage_PlanningDefaults(t *testing.T) {
	client := &stubLLM{responses: []string{`{"appType": "spaceship"}`}}
	o := NewOrchestrator(testRegistry(t), client, nil)

	result, err := o.RunStage(context.Background(), &types.GenerateStageRequest{
		Prompt:  "something",
		StageID: StagePlanning,
	}, "Rtest2")
	require.NoError(t, err)

	assert.Equal(t, types.DefaultAppName, result.Requirement.AppName)
	assert.Equal(t, types.AppTypeInteractive, result.Requirement.AppType)
}

func TestRunStage_BuildProducesArtifact(t *testing.T) {
	client := &stubLLM{responses: []string{
		mustJSON(t, map[string]string{"html": "<div id=\"app\"></div>", "css": "body{}", "js": "init()"}),
	}}
	o := NewOrchestrator(testRegistry(t), client, nil)

	doc := &types.RequirementDoc{AppName: "Clock", AppType: types.AppTypeDisplay, AppDescription: "a clock"}
	result, err := o.RunStage(context.Background(), &types.GenerateStageRequest{
		Prompt:      "a clock",
		StageID:     StageBuild,
		Requirement: doc,
	}, "Rtest3")
	require.NoError(t, err)

	assert.Equal(t, "Clock", result.Code.DisplayName)
	assert.Equal(t, "a clock", result.Code.Description)
	assert.Equal(t, "<div id=\"app\"></div>", result.Code.Markup)
	assert.Equal(t, "body{}", result.Code.Style)
	assert.Equal(t, "init()", result.Code.Behavior)
}

func TestRunStage_OmittedPayloadKeepsPrevious(t *testing.T) {
	// The harden stage answers with markup and behavior only; the style
	// must pass through from the previous artifact untouched.
	client := &stubLLM{responses: []string{
		mustJSON(t, map[string]string{"html": "<main></main>", "js": "guarded()"}),
	}}
	o := NewOrchestrator(testRegistry(t), client, nil)

	prev := &types.CodeArtifact{
		DisplayName: "Clock",
		Markup:      "<div></div>",
		Style:       ".clock { color: red }",
		Behavior:    "tick()",
	}
	result, err := o.RunStage(context.Background(), &types.GenerateStageRequest{
		Prompt:       "a clock",
		StageID:      StageHarden,
		ExistingCode: prev,
	}, "Rtest4")
	require.NoError(t, err)

	assert.Equal(t, "<main></main>", result.Code.Markup)
	assert.Equal(t, ".clock { color: red }", result.Code.Style)
	assert.Equal(t, "guarded()", result.Code.Behavior)
	// The input artifact itself is not mutated.
	assert.Equal(t, "<div></div>", prev.Markup)
}

func TestRunStage_UnknownStage(t *testing.T) {
	o := NewOrchestrator(testRegistry(t), &stubLLM{}, nil)

	_, err := o.RunStage(context.Background(), &types.GenerateStageRequest{
		Prompt:  "x",
		StageID: "stage9",
	}, "Rtest5")

	var unknown *registry.UnknownStageError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "stage9", unknown.Stage)
}

func TestRunStage_ModelOverride(t *testing.T) {
	client := &stubLLM{responses: []string{`{"appName": "X", "appType": "tool"}`}}
	o := NewOrchestrator(testRegistry(t), client, nil)

	_, err := o.RunStage(context.Background(), &types.GenerateStageRequest{
		Prompt:   "x",
		StageID:  StagePlanning,
		ModelKey: "alt",
	}, "Rtest6")
	require.NoError(t, err)
	assert.Equal(t, "alt-model", client.calls[0].profile.Model)
}

func TestRunImageStage_GameGetsBothImages(t *testing.T) {
	client := &stubLLM{responses: []string{
		mustJSON(t, map[string]string{"prompt": "a cartoon bird jumping"}),
		mustJSON(t, map[string]string{"prompt": "a mocking cartoon bird", "roastText": "A sloth jumps higher!"}),
	}}
	images := &stubImages{}
	o := NewOrchestrator(testRegistry(t), client, images)

	in := &types.RequirementDoc{AppName: "JumpIt", AppType: types.AppTypeGame}
	out := o.RunImageStage(context.Background(), in, "", "Rimg1")

	assert.Equal(t, "a cartoon bird jumping", out.CoverImagePrompt)
	assert.Equal(t, "a mocking cartoon bird", out.GameOverImagePrompt)
	assert.Equal(t, "A sloth jumps higher!", out.RoastText)
	assert.Equal(t, "Rimg1-cover", out.CoverImageID)
	assert.Equal(t, "/api/images/Rimg1-cover", out.CoverImagePath)
	assert.Equal(t, "Rimg1-gameover", out.GameOverImageID)
	assert.Equal(t, []string{"cover", "gameover"}, images.calls)

	// The input document is copied, never amended in place.
	assert.Empty(t, in.CoverImageID)
	assert.Empty(t, in.RoastText)
}

func TestRunImageStage_NonGameSkipsGameOver(t *testing.T) {
	client := &stubLLM{responses: []string{
		mustJSON(t, map[string]string{"prompt": "a friendly calculator"}),
	}}
	images := &stubImages{}
	o := NewOrchestrator(testRegistry(t), client, images)

	out := o.RunImageStage(context.Background(), &types.RequirementDoc{
		AppName: "Calc", AppType: types.AppTypeTool,
	}, "", "Rimg2")

	assert.NotEmpty(t, out.CoverImageID)
	assert.Empty(t, out.GameOverImagePrompt)
	assert.Equal(t, []string{"cover"}, images.calls)
	require.Len(t, client.calls, 1)
}

func TestRunImageStage_PromptFailureIsPartial(t *testing.T) {
	// The model produces no usable JSON for either prompt. The stage still
	// succeeds, just with nothing attached.
	client := &stubLLM{responses: []string{"sorry, no ideas today"}}
	images := &stubImages{}
	o := NewOrchestrator(testRegistry(t), client, images)

	out := o.RunImageStage(context.Background(), &types.RequirementDoc{
		AppName: "JumpIt", AppType: types.AppTypeGame,
	}, "", "Rimg3")

	assert.Empty(t, out.CoverImagePrompt)
	assert.Empty(t, out.GameOverImagePrompt)
	assert.Empty(t, images.calls)
}

func TestRunImageStage_RenderFailureLeavesNoDanglingRef(t *testing.T) {
	client := &stubLLM{responses: []string{
		mustJSON(t, map[string]string{"prompt": "a cartoon bird"}),
		mustJSON(t, map[string]string{"prompt": "a mocking bird", "roastText": "Try again!"}),
	}}
	images := &stubImages{fail: map[string]bool{"gameover": true}}
	o := NewOrchestrator(testRegistry(t), client, images)

	out := o.RunImageStage(context.Background(), &types.RequirementDoc{
		AppName: "JumpIt", AppType: types.AppTypeGame,
	}, "", "Rimg4")

	// Prompts and roast survive even when the render fails.
	assert.NotEmpty(t, out.CoverImageID)
	assert.Equal(t, "Try again!", out.RoastText)
	assert.Empty(t, out.GameOverImageID)
	assert.Empty(t, out.GameOverImagePath)
}

func TestRunSequence_ThreadsArtifacts(t *testing.T) {
	client := &stubLLM{responses: []string{
		mustJSON(t, map[string]any{"appName": "JumpIt", "appType": "game", "coreFeatures": []string{"tap to jump"}}),
		mustJSON(t, map[string]string{"prompt": "cover art"}),
		mustJSON(t, map[string]string{"prompt": "defeat art", "roastText": "Ouch."}),
		mustJSON(t, map[string]string{"html": "<div id=\"game-container\"></div>", "css": "body{}", "js": "start()"}),
		mustJSON(t, map[string]string{"js": "start(); guard()"}),
	}}
	images := &stubImages{}
	o := NewOrchestrator(testRegistry(t), client, images)

	var events []ProgressEvent
	result, err := o.RunSequence(context.Background(), "a tap-to-jump game",
		[]string{StagePlanning, StageImages, StageBuild, StageHarden},
		func(e ProgressEvent) { events = append(events, e) }, "Rseq1")
	require.NoError(t, err)

	assert.True(t, result.Completed)
	require.Len(t, result.Results, 4)
	for _, outcome := range result.Results {
		assert.True(t, outcome.Success, outcome.Stage)
	}

	// The build stage saw the image paths produced by the image stage.
	require.NotNil(t, result.Requirement)
	assert.Equal(t, "/api/images/Rseq1-cover", result.Requirement.CoverImagePath)
	buildUser := client.calls[3].messages[1].Content
	assert.Contains(t, buildUser, "/api/images/Rseq1-cover")
	assert.Contains(t, buildUser, "/api/images/Rseq1-gameover")

	// The harden stage inherited the build output and replaced only the JS.
	assert.Equal(t, "<div id=\"game-container\"></div>", result.Code.Markup)
	assert.Equal(t, "start(); guard()", result.Code.Behavior)

	assert.NotEmpty(t, events)
}

func TestRunSequence_PlanningCodeSeedsArtifact(t *testing.T) {
	client := &stubLLM{responses: []string{
		mustJSON(t, map[string]string{"appName": "Tally", "appType": "tool", "css": "body{color:red}"}),
		mustJSON(t, map[string]string{"html": "<div id=\"count\"></div>", "js": "count()"}),
	}}
	o := NewOrchestrator(testRegistry(t), client, nil)

	result, err := o.RunSequence(context.Background(), "a tally counter",
		[]string{StagePlanning, StageBuild}, nil, "Rseq4")
	require.NoError(t, err)

	// Payloads sketched by the planning stage survive into the final
	// artifact when a later stage does not replace them.
	require.NotNil(t, result.Code)
	assert.Equal(t, "body{color:red}", result.Code.Style)
	assert.Equal(t, "<div id=\"count\"></div>", result.Code.Markup)
	assert.Equal(t, "count()", result.Code.Behavior)
	assert.Equal(t, "Tally", result.Code.DisplayName)
}

func TestRunSequence_StopsAtFirstFailure(t *testing.T) {
	client := &stubLLM{responses: []string{
		mustJSON(t, map[string]any{"appName": "Clock", "appType": "display"}),
		"I refuse to answer with JSON",
	}}
	o := NewOrchestrator(testRegistry(t), client, nil)

	result, err := o.RunSequence(context.Background(), "a clock",
		[]string{StagePlanning, StageBuild, StageHarden}, nil, "Rseq2")
	require.Error(t, err)

	assert.False(t, result.Completed)
	require.Len(t, result.Results, 2)
	assert.True(t, result.Results[0].Success)
	assert.False(t, result.Results[1].Success)
	assert.Equal(t, StageBuild, result.Results[1].Stage)

	// Partial output survives the failure.
	assert.Equal(t, "Clock", result.Requirement.AppName)
	require.Len(t, client.calls, 2)
}

func TestRunSequence_DefaultsToPlanning(t *testing.T) {
	client := &stubLLM{responses: []string{
		mustJSON(t, map[string]any{"appName": "X", "appType": "tool"}),
	}}
	o := NewOrchestrator(testRegistry(t), client, nil)

	result, err := o.RunSequence(context.Background(), "x", nil, nil, "Rseq3")
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, StagePlanning, result.Results[0].Stage)
}

func TestRefine_MergesWithExisting(t *testing.T) {
	client := &stubLLM{responses: []string{
		mustJSON(t, map[string]string{"css": "body { background: black }"}),
	}}
	o := NewOrchestrator(testRegistry(t), client, nil)

	code, err := o.Refine(context.Background(), &types.RefineRequest{
		Instruction: "make it dark mode",
		ExistingCode: &types.CodeArtifact{
			DisplayName: "Clock",
			Markup:      "<div></div>",
			Style:       "body { background: white }",
			Behavior:    "tick()",
		},
	}, "Rref1")
	require.NoError(t, err)

	assert.Equal(t, "body { background: black }", code.Style)
	assert.Equal(t, "<div></div>", code.Markup)
	assert.Equal(t, "tick()", code.Behavior)
}

func TestRefine_UpstreamErrorPropagates(t *testing.T) {
	client := &stubLLM{err: errors.New("connection reset")}
	o := NewOrchestrator(testRegistry(t), client, nil)

	_, err := o.Refine(context.Background(), &types.RefineRequest{
		Instruction:  "x",
		ExistingCode: &types.CodeArtifact{Markup: "<div></div>"},
	}, "Rref2")
	assert.Error(t, err)
}

func TestNewRunID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := NewRunID()
		assert.Len(t, id, 6)
		assert.Equal(t, byte('R'), id[0])
		seen[id] = true
	}
	assert.Greater(t, len(seen), 1)
}
