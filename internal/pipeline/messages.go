package pipeline

import (
	"fmt"
	"strings"

	"github.com/jonathan/lightapp/internal/llm"
	"github.com/jonathan/lightapp/internal/prompts"
	"github.com/jonathan/lightapp/internal/types"
)

const stageFile = "stages.json"
const imageFile = "images.json"

func stagePair(systemKey, userKey string, data map[string]string) ([]llm.Message, error) {
	system, err := prompts.Get(stageFile, systemKey)
	if err != nil {
		return nil, err
	}
	user, err := prompts.Get(stageFile, userKey)
	if err != nil {
		return nil, err
	}
	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: prompts.Format(user, data)},
	}, nil
}

func planningMessages(userPrompt string) ([]llm.Message, error) {
	return stagePair("stage1_system", "stage1_user", map[string]string{
		"UserPrompt": userPrompt,
	})
}

func buildMessages(doc *types.RequirementDoc, userPrompt string) ([]llm.Message, error) {
	if doc == nil {
		doc = &types.RequirementDoc{}
	}

	var imageInstructions strings.Builder
	if doc.CoverImagePath != "" {
		tmpl, err := prompts.Get(stageFile, "stage2_cover")
		if err != nil {
			return nil, err
		}
		imageInstructions.WriteString(prompts.Format(tmpl, map[string]string{
			"CoverImagePath": doc.CoverImagePath,
		}))
	}
	if doc.IsGame() && doc.GameOverImagePath != "" {
		tmpl, err := prompts.Get(stageFile, "stage2_gameover")
		if err != nil {
			return nil, err
		}
		imageInstructions.WriteString(prompts.Format(tmpl, map[string]string{
			"GameOverImagePath": doc.GameOverImagePath,
			"RoastText":         fallback(doc.RoastText, "You need more practice!"),
		}))
	}

	gameNotes := ""
	if doc.IsGame() {
		tmpl, err := prompts.Get(stageFile, "stage2_game")
		if err != nil {
			return nil, err
		}
		gameNotes = tmpl
	}

	return stagePair("stage2_system", "stage2_user", map[string]string{
		"AppName":           fallback(doc.AppName, types.DefaultAppName),
		"AppType":           fallback(doc.AppType, types.AppTypeInteractive),
		"AppDescription":    doc.AppDescription,
		"UserPrompt":        userPrompt,
		"CoreFeatures":      numberedList(doc.CoreFeatures, "Implement what the request needs"),
		"UserFlow":          fallback(doc.UserFlow, "Design from the request"),
		"LayoutType":        fallback(doc.UILayout.Type, "single page"),
		"Components":        joinList(doc.UILayout.MainComponents, "as needed"),
		"Layout":            fallback(doc.UILayout.Layout, "free-form"),
		"PrimaryAction":     fallback(doc.Interaction.PrimaryAction, "tap"),
		"FeedbackType":      fallback(doc.Interaction.FeedbackType, "visual feedback"),
		"Gestures":          joinList(doc.Interaction.Gestures, "tap"),
		"TechnicalNotes":    fallback(doc.TechnicalNotes, "none"),
		"ImageInstructions": imageInstructions.String(),
		"GameNotes":         gameNotes,
	})
}

func hardenMessages(code *types.CodeArtifact, doc *types.RequirementDoc) ([]llm.Message, error) {
	if doc == nil {
		doc = &types.RequirementDoc{}
	}
	data := codePlaceholders(code)
	data["AppName"] = fallback(doc.AppName, types.DefaultAppName)
	data["CoreFeatures"] = joinList(doc.CoreFeatures, "see code")
	return stagePair("stage3_system", "stage3_user", data)
}

func polishMessages(code *types.CodeArtifact, doc *types.RequirementDoc) ([]llm.Message, error) {
	if doc == nil {
		doc = &types.RequirementDoc{}
	}
	data := codePlaceholders(code)
	data["AppName"] = fallback(doc.AppName, types.DefaultAppName)
	data["Theme"] = fallback(doc.VisualStyle.Theme, "modern minimal")
	data["ColorScheme"] = fallback(doc.VisualStyle.ColorScheme, "designer's choice")
	return stagePair("stage4_system", "stage4_user", data)
}

func refineMessages(code *types.CodeArtifact, instruction string, doc *types.RequirementDoc, originalPrompt string) ([]llm.Message, error) {
	appName := types.DefaultAppName
	if doc != nil && doc.AppName != "" {
		appName = doc.AppName
	}
	data := codePlaceholders(code)
	data["AppName"] = appName
	data["OriginalPrompt"] = originalPrompt
	data["Instruction"] = instruction
	return stagePair("stage5_system", "stage5_user", data)
}

func coverPromptMessages(doc *types.RequirementDoc) ([]llm.Message, error) {
	system, err := prompts.Get(imageFile, "cover_system")
	if err != nil {
		return nil, err
	}
	user, err := prompts.Get(imageFile, "cover_user")
	if err != nil {
		return nil, err
	}
	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: prompts.Format(user, map[string]string{
			"AppName":        doc.AppName,
			"AppType":        doc.AppType,
			"AppDescription": doc.AppDescription,
			"CoreFeatures":   joinList(doc.CoreFeatures, ""),
			"Theme":          fallback(doc.VisualStyle.Theme, "cartoon"),
			"ColorScheme":    fallback(doc.VisualStyle.ColorScheme, "vivid"),
		})},
	}, nil
}

func gameOverPromptMessages(doc *types.RequirementDoc) ([]llm.Message, error) {
	system, err := prompts.Get(imageFile, "gameover_system")
	if err != nil {
		return nil, err
	}
	user, err := prompts.Get(imageFile, "gameover_user")
	if err != nil {
		return nil, err
	}
	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: prompts.Format(user, map[string]string{
			"AppName":        doc.AppName,
			"AppDescription": doc.AppDescription,
			"CoreFeatures":   joinList(doc.CoreFeatures, ""),
			"TechnicalNotes": doc.TechnicalNotes,
		})},
	}, nil
}

func codePlaceholders(code *types.CodeArtifact) map[string]string {
	if code == nil {
		code = &types.CodeArtifact{}
	}
	return map[string]string{
		"HTML": fallback(code.Markup, "<!-- none -->"),
		"CSS":  fallback(code.Style, "/* none */"),
		"JS":   fallback(code.Behavior, "// none"),
	}
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func joinList(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	return strings.Join(items, ", ")
}

func numberedList(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	var sb strings.Builder
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, item)
	}
	return strings.TrimRight(sb.String(), "\n")
}
