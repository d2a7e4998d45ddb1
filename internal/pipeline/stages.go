// Package pipeline provides the high-level orchestration for the app
// generation process: it sequences the generation stages, threads the
// requirement document and code artifact between them, and runs the image
// sub-pipeline.
package pipeline

// Stage identifiers. These are wire values used by the frontend and the
// config file, so they stay stable even though the numbering has gaps.
const (
	StagePlanning = "stage1"
	StageImages   = "stage1_5"
	StageBuild    = "stage2"
	StageHarden   = "stage3"
	StagePolish   = "stage4"
	StageRefine   = "stage5"
)

// StageInfo describes one stage for frontends and progress reporting.
type StageInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Stages lists the sequenced stages in execution order. The refinement
// stage is excluded: it is conversational and never part of a sequence.
func Stages() []StageInfo {
	return []StageInfo{
		{ID: StagePlanning, Name: "PM · Requirements", Description: "Understand the request, plan features and interactions"},
		{ID: StageImages, Name: "Artist · Images", Description: "Generate the cover and game-over images"},
		{ID: StageBuild, Name: "Dev · Implementation", Description: "Write the core code and app logic"},
		{ID: StageHarden, Name: "Tester · Hardening", Description: "Probe edge cases, fix latent problems"},
		{ID: StagePolish, Name: "Designer · Polish", Description: "Improve visuals and user experience"},
	}
}

// DefaultSequence is the stage list used when a full-generation request
// does not name one.
func DefaultSequence() []string {
	return []string{StagePlanning}
}
