// Package stages contains one adapter per pipeline phase. Adapters
// translate the job record into a collaborator call and fold the result
// (or failure) back into the record; they never reach past their own
// stage's fields.
package stages

import (
	"context"

	"videoforge/internal/domain"
)

// SpeechSynthesizer turns narration text into an audio artifact and
// reports its measured duration in seconds.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice, outFile string) (float64, error)
}

// TranscribeOptions carries the caption preferences taken from a job's
// render settings.
type TranscribeOptions struct {
	Language        string
	WordTimestamps  bool
	MaxCharsPerLine int
}

// Transcriber produces a subtitle track from an audio artifact.
type Transcriber interface {
	Transcribe(ctx context.Context, audioFile, outFile string, opts TranscribeOptions) error
}

// TextGenerator is one tier of the prompt-generation fallback chain.
type TextGenerator interface {
	// Name identifies the provider in prompt attribution.
	Name() string
	// GeneratePrompt writes an image-description prompt for one script
	// fragment in the given visual style.
	GeneratePrompt(ctx context.Context, fragment, style string) (string, error)
}

// ImageGenerator produces one image file from a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, seed int, outFile string) error
}

// RenderRequest is everything the rendering collaborator needs to
// assemble the final video.
type RenderRequest struct {
	Images      []string
	Plan        *domain.SegmentPlan
	AudioFile   string
	CaptionFile string
	Settings    domain.RenderSettings
	OutFile     string
	WorkDir     string
}

// Renderer assembles the final video. The orchestrator treats it as a
// black box.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) error
}
