package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Requirement(t *testing.T) {
	doc := []byte(`{
		"appName": "JumpIt",
		"appType": "game",
		"coreFeatures": ["tap to jump", "score"],
		"uiLayout": {"type": "single page", "mainComponents": ["canvas", "score bar"]}
	}`)
	assert.NoError(t, Validate(Requirement, doc))
}

func TestValidate_RequirementMissingFieldsAllowed(t *testing.T) {
	// Partial documents are completed with defaults downstream.
	assert.NoError(t, Validate(Requirement, []byte(`{}`)))
}

func TestValidate_RequirementWrongTypes(t *testing.T) {
	doc := []byte(`{"appName": 42, "coreFeatures": "not a list"}`)
	err := Validate(Requirement, doc)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, Requirement, verr.Schema)
	require.Len(t, verr.Errors, 2)

	fields := []string{verr.Errors[0].Field, verr.Errors[1].Field}
	assert.Contains(t, fields, "appName")
	assert.Contains(t, fields, "coreFeatures")
}

func TestValidate_CodeFragment(t *testing.T) {
	assert.NoError(t, Validate(CodeFragment, []byte(`{"html": "<div></div>", "css": "", "js": ""}`)))
	assert.NoError(t, Validate(CodeFragment, []byte(`{"css": "body { margin: 0 }"}`)))

	err := Validate(CodeFragment, []byte(`{"html": ["a", "b"]}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidate_ImagePromptRequiresPrompt(t *testing.T) {
	assert.NoError(t, Validate(ImagePrompt, []byte(`{"prompt": "a pixel art rocket"}`)))
	assert.NoError(t, Validate(ImagePrompt, []byte(`{"prompt": "a sad dog", "roastText": "nice try"}`)))

	err := Validate(ImagePrompt, []byte(`{"roastText": "no prompt here"}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("nope", []byte(`{}`))
	var lerr *SchemaLoadError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "nope", lerr.Name)
}
