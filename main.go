package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "report-generator",
		Short: "Generate multi-chapter research reports with a plan/research/draft/review workflow",
		Long: `report-generator plans an outline for a topic, then researches, drafts and
reviews one chapter at a time until the outline is exhausted or the transition
ceiling is reached. Content-policy rejections are retried on sanitized input.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config")
	rootCmd.AddCommand(newGenerateCmd(), newServeCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
