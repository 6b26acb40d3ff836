package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"videoforge/internal/config"
	"videoforge/internal/logging"
	"videoforge/internal/upload"
)

var (
	publishVideo       string
	publishTitle       string
	publishDescription string
	publishTags        []string
	publishSchedule    string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload a finished video to YouTube",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPublish(cmd)
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishVideo, "video", "", "path to the video file")
	publishCmd.Flags().StringVar(&publishTitle, "title", "", "video title")
	publishCmd.Flags().StringVar(&publishDescription, "description", "", "video description")
	publishCmd.Flags().StringSliceVar(&publishTags, "tags", nil, "comma-separated video tags")
	publishCmd.Flags().StringVar(&publishSchedule, "schedule", "", "scheduled publish time in RFC 3339 UTC")
	_ = publishCmd.MarkFlagRequired("video")
	_ = publishCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	uploader := upload.New(cfg.Upload, log)
	id, url, err := uploader.Run(cmd.Context(), publishVideo, upload.Metadata{
		Title:            publishTitle,
		Description:      publishDescription,
		Tags:             publishTags,
		ScheduledTimeUTC: publishSchedule,
	})
	if err != nil {
		return err
	}
	fmt.Printf("uploaded %s\n%s\n", id, url)
	return nil
}
