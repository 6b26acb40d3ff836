package domain

import "time"

// JobState identifies where a job currently sits in the pipeline.
type JobState string

const (
	StatePending         JobState = "pending"
	StateRunningAudio    JobState = "running_audio"
	StateRunningCaptions JobState = "running_captions"
	StateRunningPrompts  JobState = "running_prompts"
	StateRunningImages   JobState = "running_images"
	StateRunningVideo    JobState = "running_video"
	StateCompleted       JobState = "completed"
	StateFailed          JobState = "failed"
)

// Terminal reports whether a state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Stage names one of the five pipeline phases.
type Stage string

const (
	StageAudio    Stage = "audio"
	StageCaptions Stage = "captions"
	StagePrompts  Stage = "prompts"
	StageImages   Stage = "images"
	StageVideo    Stage = "video"
)

// ParseStage maps a user-supplied stage name to a Stage.
func ParseStage(name string) (Stage, bool) {
	switch Stage(name) {
	case StageAudio, StageCaptions, StagePrompts, StageImages, StageVideo:
		return Stage(name), true
	}
	return "", false
}

// AudioResult holds the narration artifact produced by the audio stage.
type AudioResult struct {
	Path     string  `json:"path"`
	Duration float64 `json:"duration_sec"`
}

// CaptionResult holds the subtitle artifact produced by the caption stage.
type CaptionResult struct {
	Path string `json:"path"`
}

// PromptEntry is one generated image prompt, paired with the script
// fragment it illustrates and the provider that produced it.
type PromptEntry struct {
	SourceText      string `json:"source_text"`
	GeneratedPrompt string `json:"generated_prompt"`
	ProviderUsed    string `json:"provider_used,omitempty"`
	Failed          bool   `json:"failed,omitempty"`
}

// VideoResult holds the final video artifact, or records why video
// assembly was skipped.
type VideoResult struct {
	Path       string `json:"path,omitempty"`
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// JobRecord is the mutable record for one project. It is created on
// submission and mutated in place by each stage; stage result fields are
// nil until their stage has run, so "has this stage run" is a type-level
// question.
type JobRecord struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	ScriptPath      string         `json:"script_path"`
	ScriptText      string         `json:"-"`
	OutputFolder    string         `json:"output_folder"`
	VoiceDescriptor string         `json:"voice"`
	Settings        RenderSettings `json:"settings"`

	State      JobState  `json:"state"`
	StateNote  string    `json:"state_note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at"`

	Audio      *AudioResult   `json:"audio,omitempty"`
	Captions   *CaptionResult `json:"captions,omitempty"`
	Plan       *SegmentPlan   `json:"segment_plan,omitempty"`
	Prompts    []PromptEntry  `json:"prompts,omitempty"`
	ImagePaths []string       `json:"image_paths,omitempty"`
	Video      *VideoResult   `json:"video,omitempty"`
}

// Clone returns a deep copy safe to hand to observers while the worker
// keeps mutating the original.
func (j *JobRecord) Clone() JobRecord {
	out := *j
	if j.Audio != nil {
		a := *j.Audio
		out.Audio = &a
	}
	if j.Captions != nil {
		c := *j.Captions
		out.Captions = &c
	}
	if j.Plan != nil {
		out.Plan = j.Plan.Clone()
	}
	if j.Prompts != nil {
		out.Prompts = append([]PromptEntry(nil), j.Prompts...)
	}
	if j.ImagePaths != nil {
		out.ImagePaths = append([]string(nil), j.ImagePaths...)
	}
	if j.Video != nil {
		v := *j.Video
		out.Video = &v
	}
	return out
}
