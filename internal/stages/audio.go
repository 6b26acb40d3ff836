package stages

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"videoforge/internal/domain"
	"videoforge/internal/project"
)

// AudioAdapter drives the speech-synthesis collaborator. Audio failures
// are fatal to the job, so the collaborator is called exactly once with
// no retry.
type AudioAdapter struct {
	tts    SpeechSynthesizer
	format string
	log    *zap.SugaredLogger
}

// NewAudioAdapter creates the audio stage adapter. format is the audio
// container extension ("mp3", "wav").
func NewAudioAdapter(tts SpeechSynthesizer, format string, log *zap.SugaredLogger) *AudioAdapter {
	if format == "" {
		format = "mp3"
	}
	return &AudioAdapter{tts: tts, format: format, log: log}
}

// Run synthesizes the narration for the whole script.
func (a *AudioAdapter) Run(ctx context.Context, job *domain.JobRecord, layout project.Layout) (*domain.AudioResult, error) {
	outFile := layout.AudioPath(a.format)

	a.log.Infow("synthesizing narration", "job", job.ID, "voice", job.VoiceDescriptor)
	duration, err := a.tts.Synthesize(ctx, job.ScriptText, job.VoiceDescriptor, outFile)
	if err != nil {
		return nil, &domain.StageError{Stage: domain.StageAudio, Fatal: true, Err: err}
	}
	if duration <= 0 {
		return nil, &domain.StageError{
			Stage: domain.StageAudio,
			Fatal: true,
			Err:   fmt.Errorf("synthesizer reported duration %.3fs", duration),
		}
	}

	a.log.Infow("narration ready", "job", job.ID, "file", outFile, "duration_sec", duration)
	return &domain.AudioResult{Path: outFile, Duration: duration}, nil
}
