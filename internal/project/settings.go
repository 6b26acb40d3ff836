package project

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"videoforge/internal/domain"
)

// settingsFile is the serialized form of a project's settings.json: the
// render settings plus whatever stage artifacts exist so far. It is the
// record the regeneration controller reads back after a restart of the
// UI session.
type settingsFile struct {
	Title    string                `json:"title"`
	Voice    string                `json:"voice"`
	Settings domain.RenderSettings `json:"settings"`

	AudioPath     string              `json:"audio_path,omitempty"`
	AudioDuration float64             `json:"audio_duration_sec,omitempty"`
	CaptionPath   string              `json:"caption_path,omitempty"`
	SegmentPlan   *domain.SegmentPlan `json:"segment_plan,omitempty"`
	PromptCount   int                 `json:"prompt_count,omitempty"`
	ImagePaths    []string            `json:"image_paths,omitempty"`
	VideoPath     string              `json:"video_path,omitempty"`
}

// SaveSettings writes the full settings.json for a job record.
func SaveSettings(l Layout, job *domain.JobRecord) error {
	sf := settingsFile{
		Title:    job.Title,
		Voice:    job.VoiceDescriptor,
		Settings: job.Settings,
	}
	if job.Audio != nil {
		sf.AudioPath = job.Audio.Path
		sf.AudioDuration = job.Audio.Duration
	}
	if job.Captions != nil {
		sf.CaptionPath = job.Captions.Path
	}
	sf.SegmentPlan = job.Plan
	sf.PromptCount = len(job.Prompts)
	sf.ImagePaths = job.ImagePaths
	if job.Video != nil {
		sf.VideoPath = job.Video.Path
	}

	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return os.WriteFile(l.SettingsPath(), data, 0o644)
}

// UpdateSettingsKeys rewrites only the given top-level keys inside an
// existing settings.json, leaving every other field untouched. Used by
// single-stage regeneration so one stage never clobbers another's
// persisted artifacts.
func UpdateSettingsKeys(l Layout, kv map[string]interface{}) error {
	raw, err := os.ReadFile(l.SettingsPath())
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	doc := string(raw)
	for key, value := range kv {
		doc, err = sjson.Set(doc, key, value)
		if err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return os.WriteFile(l.SettingsPath(), []byte(doc), 0o644)
}

// ReadSettingsKey fetches one value from settings.json by gjson path.
func ReadSettingsKey(l Layout, path string) (gjson.Result, error) {
	raw, err := os.ReadFile(l.SettingsPath())
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read settings: %w", err)
	}
	return gjson.GetBytes(raw, path), nil
}
