package stages

import (
	"context"

	"go.uber.org/zap"

	"videoforge/internal/domain"
	"videoforge/internal/project"
)

// ImageAdapter requests one image per usable prompt. Per-image failures
// are logged and skipped; the batch never aborts.
type ImageAdapter struct {
	gen ImageGenerator
	log *zap.SugaredLogger
}

// NewImageAdapter creates the image stage adapter.
func NewImageAdapter(gen ImageGenerator, log *zap.SugaredLogger) *ImageAdapter {
	return &ImageAdapter{gen: gen, log: log}
}

// Run generates images for every non-error prompt, in order. The result
// may be shorter than the prompt list when some generations fail.
func (a *ImageAdapter) Run(ctx context.Context, job *domain.JobRecord, layout project.Layout) []string {
	var paths []string
	for i, entry := range job.Prompts {
		if IsErrorPrompt(entry) {
			a.log.Warnw("skipping errored prompt", "job", job.ID, "segment", i)
			continue
		}

		outFile := layout.ImagePath(i)
		if err := a.gen.Generate(ctx, entry.GeneratedPrompt, i, outFile); err != nil {
			a.log.Warnw("image generation failed", "job", job.ID, "segment", i, "error", err)
			continue
		}
		paths = append(paths, outFile)
	}
	return paths
}
