// Package regen re-runs a single pipeline stage for a finished job
// without touching the rest of its artifacts.
package regen

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"videoforge/internal/domain"
	"videoforge/internal/planner"
	"videoforge/internal/project"
	"videoforge/internal/stages"
	"videoforge/internal/status"
	"videoforge/internal/store"
)

// Deps bundles the controller's collaborators. The stage adapters are
// the same instances the worker uses, so regeneration behaves exactly
// like the original run of that stage.
type Deps struct {
	Store    *store.Store
	Planner  *planner.Planner
	Audio    *stages.AudioAdapter
	Captions *stages.CaptionAdapter
	Prompts  *stages.PromptAdapter
	Images   *stages.ImageAdapter
	Video    *stages.VideoAdapter
	Reporter status.Reporter
	Log      *zap.SugaredLogger
}

// Controller validates and runs single-stage regenerations. Each
// accepted request runs on its own goroutine; the per-job guard keeps it
// from interleaving with the worker or another regeneration of the same
// job.
type Controller struct {
	deps Deps
	wg   sync.WaitGroup
}

// New creates the controller.
func New(deps Deps) *Controller {
	return &Controller{deps: deps}
}

// Request checks that the job exists and that the stage's upstream
// artifacts are present, then starts the re-run in the background. The
// re-run gets its own context so a short-lived caller (an HTTP request)
// cannot cancel it mid-stage. domain.ErrNotFound means the job id is
// unknown; domain.ErrPreconditionFailed means the stage cannot run yet.
func (c *Controller) Request(ctx context.Context, jobID string, stage domain.Stage) error {
	job, err := c.deps.Store.Get(jobID)
	if err != nil {
		return err
	}
	if err := c.checkPreconditions(&job, stage); err != nil {
		return err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(context.WithoutCancel(ctx), jobID, stage)
	}()
	return nil
}

// Wait blocks until every in-flight regeneration has finished.
func (c *Controller) Wait() { c.wg.Wait() }

// checkPreconditions enforces the stage dependency chain: a stage can
// only be regenerated when everything upstream of it already exists.
func (c *Controller) checkPreconditions(job *domain.JobRecord, stage domain.Stage) error {
	if !job.State.Terminal() {
		return fmt.Errorf("job is %s: %w", job.State, domain.ErrPreconditionFailed)
	}
	switch stage {
	case domain.StageAudio:
		// Only the script is needed, and every job has one.
		return nil
	case domain.StageCaptions, domain.StagePrompts:
		if job.Audio == nil || job.Plan == nil {
			return fmt.Errorf("narration has not been generated: %w", domain.ErrPreconditionFailed)
		}
		if stage == domain.StageCaptions && !c.deps.Captions.Available() {
			return fmt.Errorf("no transcriber configured: %w", domain.ErrPreconditionFailed)
		}
		return nil
	case domain.StageImages:
		if len(job.Prompts) == 0 {
			return fmt.Errorf("no prompts to draw from: %w", domain.ErrPreconditionFailed)
		}
		return nil
	case domain.StageVideo:
		if job.Audio == nil || job.Plan == nil {
			return fmt.Errorf("narration has not been generated: %w", domain.ErrPreconditionFailed)
		}
		if len(job.ImagePaths) == 0 {
			return fmt.Errorf("no images to render: %w", domain.ErrPreconditionFailed)
		}
		return nil
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
}

func (c *Controller) run(ctx context.Context, jobID string, stage domain.Stage) {
	guard := c.deps.Store.Guard(jobID)
	guard.Lock()
	defer guard.Unlock()

	job, err := c.deps.Store.Get(jobID)
	if err != nil {
		c.deps.Log.Errorw("regeneration target vanished", "job", jobID, "error", err)
		return
	}
	layout := project.FromFolder(job.OutputFolder)
	if job.ScriptText == "" {
		if raw, err := os.ReadFile(layout.ScriptPath()); err == nil {
			job.ScriptText = string(raw)
		}
	}
	if job.VoiceDescriptor == "" {
		// settings.json is the durable copy of the voice choice.
		if v, err := project.ReadSettingsKey(layout, "voice"); err == nil && v.String() != "" {
			job.VoiceDescriptor = v.String()
		}
	}

	c.deps.Log.Infow("regenerating stage", "job", jobID, "stage", stage)
	c.deps.Reporter.Publish(jobID, "regenerating "+string(stage), "")

	switch stage {
	case domain.StageAudio:
		err = c.regenAudio(ctx, &job, layout)
	case domain.StageCaptions:
		err = c.regenCaptions(ctx, &job, layout)
	case domain.StagePrompts:
		err = c.regenPrompts(ctx, &job, layout)
	case domain.StageImages:
		err = c.regenImages(ctx, &job, layout)
	case domain.StageVideo:
		err = c.regenVideo(ctx, &job, layout)
	}
	if err != nil {
		c.deps.Log.Errorw("regeneration failed", "job", jobID, "stage", stage, "error", err)
		c.deps.Reporter.Publish(jobID, fmt.Sprintf("regeneration of %s failed", stage), "")
		return
	}
	c.deps.Reporter.Publish(jobID, fmt.Sprintf("regeneration of %s finished", stage), "")
}

// regenAudio re-synthesizes the narration. The new duration invalidates
// the segment plan, so it is re-derived as well; downstream artifacts
// are left alone and stay tied to the old plan until regenerated too.
func (c *Controller) regenAudio(ctx context.Context, job *domain.JobRecord, layout project.Layout) error {
	if job.Audio != nil {
		removeIfExists(job.Audio.Path)
	}

	res, err := c.deps.Audio.Run(ctx, job, layout)
	if err != nil {
		return err
	}
	plan, err := c.deps.Planner.Plan(res.Duration, planner.PrefsFromSettings(job.Settings))
	if err != nil {
		return err
	}

	if err := c.deps.Store.Update(job.ID, func(rec *domain.JobRecord) {
		rec.Audio = res
		rec.Plan = plan
	}); err != nil {
		return err
	}
	return project.UpdateSettingsKeys(layout, map[string]interface{}{
		"audio_path":         res.Path,
		"audio_duration_sec": res.Duration,
		"segment_plan":       plan,
	})
}

func (c *Controller) regenCaptions(ctx context.Context, job *domain.JobRecord, layout project.Layout) error {
	removeIfExists(layout.CaptionPath())

	res, err := c.deps.Captions.Run(ctx, job, layout)
	if err != nil {
		return err
	}
	if err := c.deps.Store.Update(job.ID, func(rec *domain.JobRecord) {
		rec.Captions = res
	}); err != nil {
		return err
	}
	return project.UpdateSettingsKeys(layout, map[string]interface{}{
		"caption_path": res.Path,
	})
}

func (c *Controller) regenPrompts(ctx context.Context, job *domain.JobRecord, layout project.Layout) error {
	entries := c.deps.Prompts.Run(ctx, job.ScriptText, job.Plan, job.Settings.ImageStyle)
	if err := layout.WritePromptDump(entries); err != nil {
		return err
	}
	if err := c.deps.Store.Update(job.ID, func(rec *domain.JobRecord) {
		rec.Prompts = entries
	}); err != nil {
		return err
	}
	return project.UpdateSettingsKeys(layout, map[string]interface{}{
		"prompt_count": len(entries),
	})
}

func (c *Controller) regenImages(ctx context.Context, job *domain.JobRecord, layout project.Layout) error {
	for _, old := range job.ImagePaths {
		removeIfExists(old)
	}

	paths := c.deps.Images.Run(ctx, job, layout)
	if len(paths) == 0 {
		return fmt.Errorf("image generation produced nothing")
	}
	if err := c.deps.Store.Update(job.ID, func(rec *domain.JobRecord) {
		rec.ImagePaths = paths
	}); err != nil {
		return err
	}
	return project.UpdateSettingsKeys(layout, map[string]interface{}{
		"image_paths": paths,
	})
}

func (c *Controller) regenVideo(ctx context.Context, job *domain.JobRecord, layout project.Layout) error {
	removeIfExists(layout.VideoPath())

	res, err := c.deps.Video.Run(ctx, job, layout, job.ImagePaths)
	if err != nil {
		return err
	}
	if err := c.deps.Store.Update(job.ID, func(rec *domain.JobRecord) {
		rec.Video = res
	}); err != nil {
		return err
	}
	return project.UpdateSettingsKeys(layout, map[string]interface{}{
		"video_path": res.Path,
	})
}

func removeIfExists(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
