package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	submitServer string
	submitTitle  string
	submitScript string
	submitVoice  string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a script to a running videoforge server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSubmit()
	},
}

func init() {
	submitCmd.Flags().StringVar(&submitServer, "server", "http://localhost:8489", "base URL of the videoforge server")
	submitCmd.Flags().StringVar(&submitTitle, "title", "", "project title")
	submitCmd.Flags().StringVar(&submitScript, "script", "", "path to the narration script")
	submitCmd.Flags().StringVar(&submitVoice, "voice", "", "voice descriptor, empty for the server default")
	_ = submitCmd.MarkFlagRequired("title")
	_ = submitCmd.MarkFlagRequired("script")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit() error {
	script, err := os.ReadFile(submitScript)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	body, err := json.Marshal(map[string]string{
		"title":  submitTitle,
		"script": string(script),
		"voice":  submitVoice,
	})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(submitServer+"/api/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("submit job: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("server rejected submission (%d): %s", resp.StatusCode, raw)
	}

	var created struct {
		ID           string `json:"id"`
		OutputFolder string `json:"output_folder"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	fmt.Printf("job %s queued, project folder: %s\n", created.ID, created.OutputFolder)
	return nil
}
