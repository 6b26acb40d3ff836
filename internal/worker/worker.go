// Package worker runs the pipeline: a single consumer that drains the
// job queue in arrival order and drives each job through audio, captions,
// prompts, images and video in sequence.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"videoforge/internal/domain"
	"videoforge/internal/planner"
	"videoforge/internal/project"
	"videoforge/internal/stages"
	"videoforge/internal/status"
	"videoforge/internal/store"
)

const defaultPollTimeout = 2 * time.Second

// Deps bundles everything the worker needs. All fields are required
// except PollTimeout.
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

	// PollTimeout bounds each blocking wait on the queue so shutdown is
	// noticed promptly.
	PollTimeout time.Duration
}

// Worker is the single pipeline consumer. Exactly one job is in flight
// at a time; queued jobs wait their turn.
type Worker struct {
	deps Deps
}

// New creates the worker.
func New(deps Deps) *Worker {
	if deps.PollTimeout <= 0 {
		deps.PollTimeout = defaultPollTimeout
	}
	return &Worker{deps: deps}
}

// Run consumes the queue until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.deps.Log.Infow("pipeline worker started")
	for {
		select {
		case <-ctx.Done():
			w.deps.Log.Infow("pipeline worker stopping")
			return ctx.Err()
		default:
		}

		job, ok := w.deps.Store.Dequeue(w.deps.PollTimeout)
		if !ok {
			continue
		}
		w.process(ctx, job.ID)
	}
}

// process runs one job through the full pipeline under its guard, so a
// concurrent regeneration of the same job cannot interleave.
func (w *Worker) process(ctx context.Context, id string) {
	guard := w.deps.Store.Guard(id)
	guard.Lock()
	defer guard.Unlock()

	job, err := w.deps.Store.Get(id)
	if err != nil {
		w.deps.Log.Errorw("dequeued unknown job", "job", id, "error", err)
		return
	}

	start := time.Now()
	layout := project.FromFolder(job.OutputFolder)
	if err := layout.Ensure(); err != nil {
		w.fail(&job, start, fmt.Errorf("prepare project folder: %w", err))
		return
	}
	if job.ScriptText == "" && job.ScriptPath != "" {
		raw, err := os.ReadFile(job.ScriptPath)
		if err != nil {
			w.fail(&job, start, fmt.Errorf("read script: %w", err))
			return
		}
		job.ScriptText = string(raw)
	}

	w.deps.Log.Infow("job started", "job", id, "title", job.Title)

	if !w.runAudio(ctx, &job, layout, start) {
		return
	}
	w.runCaptions(ctx, &job, layout, start)
	w.runPrompts(ctx, &job, layout, start)

	images, degraded := w.runImages(ctx, &job, layout, start)
	if len(images) == 0 {
		w.completeWithoutVideo(&job, layout, start, "no images available from this run or any previous one")
		return
	}

	if !w.runVideo(ctx, &job, layout, images, degraded, start) {
		return
	}

	w.transition(&job, domain.StateCompleted, "", start)
	w.persist(&job, layout)
	w.deps.Log.Infow("job completed", "job", id, "video", job.Video.Path, "elapsed", elapsed(start))
}

// runAudio synthesizes narration and derives the segment plan from the
// measured duration. Any failure here is fatal: nothing downstream can
// run without audio.
func (w *Worker) runAudio(ctx context.Context, job *domain.JobRecord, layout project.Layout, start time.Time) bool {
	w.transition(job, domain.StateRunningAudio, "", start)

	res, err := w.deps.Audio.Run(ctx, job, layout)
	if err != nil {
		w.fail(job, start, err)
		return false
	}
	job.Audio = res

	plan, err := w.deps.Planner.Plan(res.Duration, planner.PrefsFromSettings(job.Settings))
	if err != nil {
		w.fail(job, start, fmt.Errorf("segment planning: %w", err))
		return false
	}
	job.Plan = plan

	w.persist(job, layout)
	return true
}

// runCaptions is best-effort: on failure the job continues without a
// subtitle track.
func (w *Worker) runCaptions(ctx context.Context, job *domain.JobRecord, layout project.Layout, start time.Time) {
	if !w.deps.Captions.Available() {
		w.deps.Log.Infow("no transcriber configured, skipping captions", "job", job.ID)
		return
	}
	if !job.Settings.Captions {
		w.deps.Log.Infow("captions disabled for job", "job", job.ID)
		return
	}
	w.transition(job, domain.StateRunningCaptions, "", start)

	res, err := w.deps.Captions.Run(ctx, job, layout)
	if err != nil {
		w.deps.Log.Warnw("captions failed, continuing without subtitles", "job", job.ID, "error", err)
		w.note(job, "subtitles unavailable: "+rootMessage(err))
		return
	}
	job.Captions = res
	w.persist(job, layout)
}

// runPrompts generates one prompt per segment. The adapter never errors;
// when every prompt failed and a previous run left usable prompts behind,
// those are kept instead.
func (w *Worker) runPrompts(ctx context.Context, job *domain.JobRecord, layout project.Layout, start time.Time) {
	w.transition(job, domain.StateRunningPrompts, "", start)

	entries := w.deps.Prompts.Run(ctx, job.ScriptText, job.Plan, job.Settings.ImageStyle)
	if allFailed(entries) && hasUsable(job.Prompts) {
		w.deps.Log.Warnw("prompt generation exhausted, reusing prompts from previous run", "job", job.ID)
		w.note(job, "prompt providers exhausted, reused previous prompts")
	} else {
		job.Prompts = entries
	}

	if err := layout.WritePromptDump(job.Prompts); err != nil {
		w.deps.Log.Warnw("writing prompts.txt failed", "job", job.ID, "error", err)
	}
	w.persist(job, layout)
}

// runImages generates the segment stills. An empty batch falls back to
// images left on disk by a previous run; degraded reports that fallback.
func (w *Worker) runImages(ctx context.Context, job *domain.JobRecord, layout project.Layout, start time.Time) (paths []string, degraded bool) {
	w.transition(job, domain.StateRunningImages, "", start)

	paths = w.deps.Images.Run(ctx, job, layout)
	if len(paths) == 0 {
		prior := layout.ExistingImages()
		if len(prior) == 0 {
			return nil, false
		}
		w.deps.Log.Warnw("no images generated, reusing images from previous run", "job", job.ID, "count", len(prior))
		paths, degraded = prior, true
	}

	job.ImagePaths = paths
	w.persist(job, layout)
	return paths, degraded
}

func (w *Worker) runVideo(ctx context.Context, job *domain.JobRecord, layout project.Layout, images []string, degraded bool, start time.Time) bool {
	w.transition(job, domain.StateRunningVideo, "", start)

	res, err := w.deps.Video.Run(ctx, job, layout, images)
	if err != nil {
		w.fail(job, start, err)
		return false
	}
	job.Video = res
	if degraded {
		w.note(job, "rendered with images from a previous run")
	}
	w.persist(job, layout)
	return true
}

// completeWithoutVideo finishes the job in Completed state with the
// video explicitly marked skipped, so callers can tell a degraded run
// from a failed one.
func (w *Worker) completeWithoutVideo(job *domain.JobRecord, layout project.Layout, start time.Time, reason string) {
	job.Video = &domain.VideoResult{Skipped: true, SkipReason: reason}
	w.note(job, "video skipped: "+reason)
	w.transition(job, domain.StateCompleted, job.StateNote, start)
	w.persist(job, layout)
	w.deps.Log.Warnw("job completed without video", "job", job.ID, "reason", reason)
}

// transition moves the job to state, records it in the store, and
// publishes the change.
func (w *Worker) transition(job *domain.JobRecord, state domain.JobState, note string, start time.Time) {
	job.State = state
	if note != "" {
		job.StateNote = note
	}
	if state.Terminal() {
		job.FinishedAt = time.Now().UTC()
	}

	snapshot := job.Clone()
	if err := w.deps.Store.Update(job.ID, func(rec *domain.JobRecord) {
		*rec = snapshot
	}); err != nil {
		w.deps.Log.Errorw("persisting state failed", "job", job.ID, "error", err)
	}
	w.deps.Reporter.Publish(job.ID, string(state), elapsed(start))
}

func (w *Worker) fail(job *domain.JobRecord, start time.Time, err error) {
	var stageErr *domain.StageError
	if errors.As(err, &stageErr) {
		w.note(job, fmt.Sprintf("%s stage failed: %s", stageErr.Stage, rootMessage(stageErr.Err)))
	} else {
		w.note(job, rootMessage(err))
	}
	w.transition(job, domain.StateFailed, job.StateNote, start)
	w.deps.Log.Errorw("job failed", "job", job.ID, "error", err, "elapsed", elapsed(start))
}

// note appends to the job's state note without clobbering earlier ones.
func (w *Worker) note(job *domain.JobRecord, msg string) {
	if job.StateNote == "" {
		job.StateNote = msg
		return
	}
	job.StateNote += "; " + msg
}

// persist mirrors the in-memory record to the store and the project's
// settings.json.
func (w *Worker) persist(job *domain.JobRecord, layout project.Layout) {
	snapshot := job.Clone()
	if err := w.deps.Store.Update(job.ID, func(rec *domain.JobRecord) {
		*rec = snapshot
	}); err != nil {
		w.deps.Log.Errorw("persisting job failed", "job", job.ID, "error", err)
	}
	if err := project.SaveSettings(layout, job); err != nil {
		w.deps.Log.Warnw("writing settings.json failed", "job", job.ID, "error", err)
	}
}

func elapsed(start time.Time) string {
	return time.Since(start).Round(time.Second).String()
}

func rootMessage(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}

func allFailed(entries []domain.PromptEntry) bool {
	for _, e := range entries {
		if !e.Failed {
			return false
		}
	}
	return len(entries) > 0
}

func hasUsable(entries []domain.PromptEntry) bool {
	for _, e := range entries {
		if !e.Failed && !stages.IsErrorPrompt(e) {
			return true
		}
	}
	return false
}
