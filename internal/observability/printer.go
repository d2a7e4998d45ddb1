// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/lightapp/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRequirement outputs a human-readable summary of the requirement
// document produced by the planning stage.
func (p *Printer) PrintRequirement(doc *types.RequirementDoc) {
	if doc == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("App:   %s (%s)\n", doc.AppName, doc.AppType))
	if doc.AppDescription != "" {
		sb.WriteString(fmt.Sprintf("About: %s\n", doc.AppDescription))
	}
	if doc.TargetUser != "" {
		sb.WriteString(fmt.Sprintf("For:   %s\n", doc.TargetUser))
	}

	if len(doc.CoreFeatures) > 0 {
		sb.WriteString("\nCore features:\n")
		count := min(len(doc.CoreFeatures), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", doc.CoreFeatures[i]))
		}
		if len(doc.CoreFeatures) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(doc.CoreFeatures)-maxItemsToShow))
		}
	}

	if doc.VisualStyle.Theme != "" || doc.VisualStyle.ColorScheme != "" {
		sb.WriteString("\nVisual style:\n")
		if doc.VisualStyle.Theme != "" {
			sb.WriteString(fmt.Sprintf("  Theme:  %s\n", doc.VisualStyle.Theme))
		}
		if doc.VisualStyle.ColorScheme != "" {
			sb.WriteString(fmt.Sprintf("  Colors: %s\n", doc.VisualStyle.ColorScheme))
		}
	}

	p.printBox("REQUIREMENT DOCUMENT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintImages outputs the image sub-pipeline results recorded on the
// requirement document.
func (p *Printer) PrintImages(doc *types.RequirementDoc) {
	if doc == nil || (doc.CoverImagePrompt == "" && doc.GameOverImagePrompt == "") {
		return
	}

	var sb strings.Builder
	if doc.CoverImageID != "" {
		sb.WriteString(fmt.Sprintf("Cover:     %s\n", doc.CoverImagePath))
	} else if doc.CoverImagePrompt != "" {
		sb.WriteString("Cover:     prompt ready, render failed\n")
	}
	if doc.GameOverImageID != "" {
		sb.WriteString(fmt.Sprintf("Game over: %s\n", doc.GameOverImagePath))
	} else if doc.GameOverImagePrompt != "" {
		sb.WriteString("Game over: prompt ready, render failed\n")
	}
	if doc.RoastText != "" {
		sb.WriteString(fmt.Sprintf("Taunt:     %s\n", doc.RoastText))
	}

	p.printBox("GENERATED IMAGES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintArtifact outputs the payload sizes of a code artifact.
func (p *Printer) PrintArtifact(stage string, code *types.CodeArtifact) {
	if code == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name: %s\n", code.DisplayName))
	sb.WriteString(fmt.Sprintf("HTML: %d chars\n", len(code.Markup)))
	sb.WriteString(fmt.Sprintf("CSS:  %d chars\n", len(code.Style)))
	sb.WriteString(fmt.Sprintf("JS:   %d chars", len(code.Behavior)))

	p.printBox("ARTIFACT · "+strings.ToUpper(stage), sb.String())
}
