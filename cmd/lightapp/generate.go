package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/lightapp/internal/observability"
	"github.com/jonathan/lightapp/internal/pipeline"
	"github.com/jonathan/lightapp/internal/render"
)

var (
	genConfig      string
	genLocalConfig string
	genBackupDir   string
	genStages      []string
	genOutput      string
	genVerbose     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Run the generation pipeline once from the command line",
	Long: `Run an ordered list of generation stages against a prompt and write the
resulting standalone app page to a file.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genConfig, "config", "config.json", "Path to the model/stage config file")
	generateCmd.Flags().StringVar(&genLocalConfig, "local-config", "config.local.json", "Path to the local overlay holding endpoints and credentials")
	generateCmd.Flags().StringVar(&genBackupDir, "backup-dir", "data", "Directory for the local app/image backup (empty to disable)")
	generateCmd.Flags().StringSliceVar(&genStages, "stages", []string{"stage1", "stage1_5", "stage2", "stage3", "stage4"}, "Stages to run, in order")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "app.html", "Path to write the generated page to")
	generateCmd.Flags().BoolVarP(&genVerbose, "verbose", "v", false, "Print stage results as they complete")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := bootstrap(ctx, genConfig, genLocalConfig, genBackupDir)
	if err != nil {
		return err
	}
	defer a.close()

	printer := observability.NewPrinter(os.Stdout)
	runID := pipeline.NewRunID()

	var progress pipeline.ProgressFunc
	if genVerbose {
		progress = func(event pipeline.ProgressEvent) {
			fmt.Printf("[%s] %s: %s\n", runID, event.Stage, event.Message)
		}
	}

	result, err := a.orch.RunSequence(ctx, args[0], genStages, progress, runID)
	if err != nil {
		for _, outcome := range result.Results {
			mark := "ok"
			if !outcome.Success {
				mark = "failed: " + outcome.Error
			}
			fmt.Fprintf(os.Stderr, "  %-10s %s\n", outcome.Stage, mark)
		}
		return fmt.Errorf("run %s failed: %w", runID, err)
	}

	if genVerbose {
		printer.PrintRequirement(result.Requirement)
		printer.PrintImages(result.Requirement)
		printer.PrintArtifact(genStages[len(genStages)-1], result.Code)
	}

	if result.Code.Empty() {
		return fmt.Errorf("run %s produced no code; did the stage list include stage2?", runID)
	}

	out, err := os.Create(genOutput)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	name := result.Code.DisplayName
	description := result.Code.Description
	data := render.NewPageData(runID, name, description, result.Code)
	data.IncludePhaser = result.Requirement.IsGame()

	if err := render.WritePage(out, data); err != nil {
		return err
	}

	fmt.Printf("Wrote %s (%s)\n", genOutput, name)
	return nil
}
