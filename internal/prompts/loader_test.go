package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_StagePrompts(t *testing.T) {
	ClearCache()

	prompt, err := Get("stages.json", "stage1_system")
	require.NoError(t, err)
	assert.Contains(t, prompt, "product manager")
	assert.Contains(t, prompt, "appType")

	prompt, err = Get("stages.json", "stage2_system")
	require.NoError(t, err)
	assert.Contains(t, prompt, "Phaser 3")
}

func TestGet_ImagePrompts(t *testing.T) {
	ClearCache()

	prompt, err := Get("images.json", "gameover_system")
	require.NoError(t, err)
	assert.Contains(t, prompt, "roastText")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("stages.json", "stage99_system")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestFormat(t *testing.T) {
	template := "Build {{.AppName}} as a {{.AppType}} app"
	result := Format(template, map[string]string{
		"AppName": "JumpIt",
		"AppType": "game",
	})
	assert.Equal(t, "Build JumpIt as a game app", result)
}

func TestFormat_MissingKeyLeavesPlaceholder(t *testing.T) {
	template := "Hello {{.Name}}"
	assert.Equal(t, template, Format(template, map[string]string{}))
}

func TestAllStageTemplatesPresent(t *testing.T) {
	ClearCache()

	keys, err := List("stages.json")
	require.NoError(t, err)

	for _, want := range []string{
		"stage1_system", "stage1_user",
		"stage2_system", "stage2_user", "stage2_cover", "stage2_gameover", "stage2_game",
		"stage3_system", "stage3_user",
		"stage4_system", "stage4_user",
		"stage5_system", "stage5_user",
	} {
		assert.Contains(t, keys, want)
	}
}
