package stages

import (
	"context"

	"go.uber.org/zap"

	"videoforge/internal/domain"
	"videoforge/internal/project"
)

// CaptionAdapter drives the speech-recognition collaborator. Caption
// failures are soft: the job continues without a subtitle track.
type CaptionAdapter struct {
	asr Transcriber
	log *zap.SugaredLogger
}

// NewCaptionAdapter creates the caption stage adapter. asr may be nil
// when no speech-recognition collaborator is configured; the stage is
// then skipped entirely.
func NewCaptionAdapter(asr Transcriber, log *zap.SugaredLogger) *CaptionAdapter {
	return &CaptionAdapter{asr: asr, log: log}
}

// Available reports whether a speech-recognition collaborator is wired.
func (c *CaptionAdapter) Available() bool {
	return c.asr != nil
}

// Run transcribes the narration audio into subtitulos.srt.
func (c *CaptionAdapter) Run(ctx context.Context, job *domain.JobRecord, layout project.Layout) (*domain.CaptionResult, error) {
	opts := TranscribeOptions{
		Language:       job.Settings.CaptionLanguage,
		WordTimestamps: job.Settings.CaptionWordTimings,
	}

	outFile := layout.CaptionPath()
	c.log.Infow("transcribing narration", "job", job.ID, "language", opts.Language)
	if err := c.asr.Transcribe(ctx, job.Audio.Path, outFile, opts); err != nil {
		return nil, &domain.StageError{Stage: domain.StageCaptions, Err: err}
	}
	return &domain.CaptionResult{Path: outFile}, nil
}
