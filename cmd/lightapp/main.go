// Package main provides the entry point for the LightApp generation server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lightapp",
	Short: "LightApp generation pipeline",
	Long:  "LightApp turns a one-line idea into a runnable single-page web app by sequencing generative model stages: requirements, images, implementation, hardening, and polish.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
