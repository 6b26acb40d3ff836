package worker

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"videoforge/internal/domain"
	"videoforge/internal/planner"
	"videoforge/internal/project"
	"videoforge/internal/stages"
	"videoforge/internal/store"
)

type fakeTTS struct {
	duration float64
	err      error
}

func (f *fakeTTS) Synthesize(ctx context.Context, text, voice, outFile string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.duration, nil
}

type fakeASR struct {
	err   error
	calls int
}

func (f *fakeASR) Transcribe(ctx context.Context, audioFile, outFile string, opts stages.TranscribeOptions) error {
	f.calls++
	return f.err
}

type fakeTextGen struct {
	name string
	err  error
}

func (f *fakeTextGen) Name() string { return f.name }

func (f *fakeTextGen) GeneratePrompt(ctx context.Context, fragment, style string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "a cinematic shot of " + fragment[:min(len(fragment), 10)], nil
}

type fakeImager struct {
	err   error
	calls int
}

func (f *fakeImager) Generate(ctx context.Context, prompt string, seed int, outFile string) error {
	f.calls++
	return f.err
}

type fakeRenderer struct {
	err  error
	last stages.RenderRequest
}

func (f *fakeRenderer) Render(ctx context.Context, req stages.RenderRequest) error {
	f.last = req
	return f.err
}

type recordingReporter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingReporter) Publish(jobID, statusText, elapsed string) {
	r.mu.Lock()
	r.events = append(r.events, statusText)
	r.mu.Unlock()
}

type harness struct {
	store    *store.Store
	worker   *Worker
	reporter *recordingReporter
	tts      *fakeTTS
	asr      *fakeASR
	imager   *fakeImager
	renderer *fakeRenderer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zap.NewNop().Sugar()

	h := &harness{
		store:    store.New(),
		reporter: &recordingReporter{},
		tts:      &fakeTTS{duration: 100},
		asr:      &fakeASR{},
		imager:   &fakeImager{},
		renderer: &fakeRenderer{},
	}

	prompts := stages.NewPromptAdapter(&fakeTextGen{name: "groq"}, &fakeTextGen{name: "openai"}, 2, time.Millisecond, log)
	h.worker = New(Deps{
		Store:    h.store,
		Planner:  planner.New(log),
		Audio:    stages.NewAudioAdapter(h.tts, "mp3", log),
		Captions: stages.NewCaptionAdapter(h.asr, log),
		Prompts:  prompts,
		Images:   stages.NewImageAdapter(h.imager, log),
		Video:    stages.NewVideoAdapter(h.renderer, log),
		Reporter: h.reporter,
		Log:      log,
	})
	return h
}

func (h *harness) submit(t *testing.T, title string) (string, project.Layout) {
	t.Helper()
	layout := project.New(t.TempDir(), title)
	if err := layout.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	job := domain.JobRecord{
		Title:        title,
		ScriptText:   strings.Repeat("la ciudad duerme bajo la lluvia ", 20),
		OutputFolder: layout.Root,
		Settings:     domain.DefaultRenderSettings(),
	}
	id, err := h.store.Submit(job)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return id, layout
}

func TestProcessHappyPath(t *testing.T) {
	h := newHarness(t)
	id, layout := h.submit(t, "Misterio en Madrid")

	h.worker.process(context.Background(), id)

	job, err := h.store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.State != domain.StateCompleted {
		t.Fatalf("state = %s, note = %q", job.State, job.StateNote)
	}
	if job.Audio == nil || job.Audio.Duration != 100 {
		t.Fatalf("audio result = %+v", job.Audio)
	}
	if job.Plan == nil || job.Plan.Count() != 5 {
		t.Fatalf("plan = %+v", job.Plan)
	}
	if job.Captions == nil {
		t.Fatal("expected captions result")
	}
	if len(job.Prompts) != job.Plan.Count() {
		t.Fatalf("prompts = %d, want %d", len(job.Prompts), job.Plan.Count())
	}
	if len(job.ImagePaths) != job.Plan.Count() {
		t.Fatalf("images = %d, want %d", len(job.ImagePaths), job.Plan.Count())
	}
	if job.Video == nil || job.Video.Skipped || job.Video.Path != layout.VideoPath() {
		t.Fatalf("video = %+v", job.Video)
	}
	if job.FinishedAt.IsZero() {
		t.Fatal("FinishedAt not set")
	}
	if _, err := os.Stat(layout.PromptsPath()); err != nil {
		t.Fatalf("prompts.txt missing: %v", err)
	}
	if _, err := os.Stat(layout.SettingsPath()); err != nil {
		t.Fatalf("settings.json missing: %v", err)
	}
}

func TestProcessAudioFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.tts.err = errors.New("voice service unreachable")
	id, _ := h.submit(t, "Sin voz")

	h.worker.process(context.Background(), id)

	job, _ := h.store.Get(id)
	if job.State != domain.StateFailed {
		t.Fatalf("state = %s", job.State)
	}
	if !strings.Contains(job.StateNote, "audio") {
		t.Fatalf("note = %q", job.StateNote)
	}
	if h.asr.calls != 0 || h.imager.calls != 0 {
		t.Fatal("downstream stages ran after fatal audio failure")
	}
}

func TestProcessCaptionFailureIsSoft(t *testing.T) {
	h := newHarness(t)
	h.asr.err = errors.New("model download failed")
	id, _ := h.submit(t, "Sin subtitulos")

	h.worker.process(context.Background(), id)

	job, _ := h.store.Get(id)
	if job.State != domain.StateCompleted {
		t.Fatalf("state = %s, note = %q", job.State, job.StateNote)
	}
	if job.Captions != nil {
		t.Fatal("caption result should be absent")
	}
	if !strings.Contains(job.StateNote, "subtitles unavailable") {
		t.Fatalf("note = %q", job.StateNote)
	}
	if h.renderer.last.CaptionFile != "" {
		t.Fatal("renderer received a caption file")
	}
}

// TestProcessSkipsCaptionsWithoutTranscriber: with no speech-recognition
// collaborator wired, the caption stage is skipped outright instead of
// failing soft.
func TestProcessSkipsCaptionsWithoutTranscriber(t *testing.T) {
	h := newHarness(t)
	log := zap.NewNop().Sugar()
	h.worker.deps.Captions = stages.NewCaptionAdapter(nil, log)
	id, _ := h.submit(t, "Sin transcriptor")

	h.worker.process(context.Background(), id)

	job, _ := h.store.Get(id)
	if job.State != domain.StateCompleted {
		t.Fatalf("state = %s, note = %q", job.State, job.StateNote)
	}
	if job.Captions != nil {
		t.Fatal("caption result should be absent")
	}
	if strings.Contains(job.StateNote, "subtitles unavailable") {
		t.Fatalf("skip recorded as a failure: %q", job.StateNote)
	}
}

func TestProcessNoImagesSkipsVideo(t *testing.T) {
	h := newHarness(t)
	h.imager.err = errors.New("image host down")
	id, _ := h.submit(t, "Sin imagenes")

	h.worker.process(context.Background(), id)

	job, _ := h.store.Get(id)
	if job.State != domain.StateCompleted {
		t.Fatalf("state = %s", job.State)
	}
	if job.Video == nil || !job.Video.Skipped {
		t.Fatalf("video = %+v", job.Video)
	}
	if job.Video.Path != "" {
		t.Fatalf("skipped video has a path: %q", job.Video.Path)
	}
}

func TestProcessReusesImagesFromPreviousRun(t *testing.T) {
	h := newHarness(t)
	h.imager.err = errors.New("image host down")
	id, layout := h.submit(t, "Con reserva")

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(layout.ImagePath(i), []byte("png"), 0o644); err != nil {
			t.Fatalf("seed image: %v", err)
		}
	}

	h.worker.process(context.Background(), id)

	job, _ := h.store.Get(id)
	if job.State != domain.StateCompleted {
		t.Fatalf("state = %s, note = %q", job.State, job.StateNote)
	}
	if job.Video == nil || job.Video.Skipped {
		t.Fatalf("video = %+v", job.Video)
	}
	if len(h.renderer.last.Images) != 3 {
		t.Fatalf("renderer got %d images, want 3", len(h.renderer.last.Images))
	}
	if !strings.Contains(job.StateNote, "previous run") {
		t.Fatalf("note = %q", job.StateNote)
	}
}

func TestProcessRenderFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.renderer.err = errors.New("encoder crashed")
	id, _ := h.submit(t, "Render roto")

	h.worker.process(context.Background(), id)

	job, _ := h.store.Get(id)
	if job.State != domain.StateFailed {
		t.Fatalf("state = %s", job.State)
	}
	if !strings.Contains(job.StateNote, "video") {
		t.Fatalf("note = %q", job.StateNote)
	}
}

func TestRunDrainsQueueInOrder(t *testing.T) {
	h := newHarness(t)
	first, _ := h.submit(t, "Primero")
	second, _ := h.submit(t, "Segundo")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.worker.Run(ctx)
	}()

	deadline := time.After(5 * time.Second)
	for {
		a, _ := h.store.Get(first)
		b, _ := h.store.Get(second)
		if a.State.Terminal() && b.State.Terminal() {
			if a.FinishedAt.After(b.FinishedAt) {
				t.Fatal("first submission finished after second")
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("jobs never finished: %s / %s", a.State, b.State)
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
