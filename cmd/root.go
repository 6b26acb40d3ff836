// Package cmd wires the CLI entrypoints.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "videoforge",
	Short: "Script-to-video pipeline orchestrator",
	Long: `videoforge turns narration scripts into finished videos: it synthesizes
the voice track, derives a segment plan from the measured duration,
generates one image prompt and one image per segment, and assembles the
final video with captions burned in.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		// secrets (GROQ_API_KEY, OPENAI_API_KEY, YOUTUBE_*) come from the
		// environment; .env is a convenience for local runs
		_ = godotenv.Load()
	})
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "path to the configuration file")
}
