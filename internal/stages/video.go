package stages

import (
	"context"

	"go.uber.org/zap"

	"videoforge/internal/domain"
	"videoforge/internal/project"
)

// VideoAdapter hands everything to the rendering collaborator. Rendering
// failures are fatal to the job.
type VideoAdapter struct {
	renderer Renderer
	log      *zap.SugaredLogger
}

// NewVideoAdapter creates the video stage adapter.
func NewVideoAdapter(renderer Renderer, log *zap.SugaredLogger) *VideoAdapter {
	return &VideoAdapter{renderer: renderer, log: log}
}

// Run assembles the final video from the job's accumulated artifacts.
// images may come from this run or, degraded, from a previous one.
func (a *VideoAdapter) Run(ctx context.Context, job *domain.JobRecord, layout project.Layout, images []string) (*domain.VideoResult, error) {
	req := RenderRequest{
		Images:    images,
		Plan:      job.Plan,
		AudioFile: job.Audio.Path,
		Settings:  job.Settings,
		OutFile:   layout.VideoPath(),
		WorkDir:   layout.Root,
	}
	if job.Captions != nil {
		req.CaptionFile = job.Captions.Path
	}

	a.log.Infow("rendering final video", "job", job.ID, "images", len(images), "segments", job.Plan.Count())
	if err := a.renderer.Render(ctx, req); err != nil {
		return nil, &domain.StageError{Stage: domain.StageVideo, Fatal: true, Err: err}
	}
	return &domain.VideoResult{Path: req.OutFile}, nil
}
