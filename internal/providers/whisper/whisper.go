// Package whisper implements the speech-recognition collaborator on top
// of the whisper CLI, producing SRT caption tracks.
package whisper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"videoforge/internal/stages"
)

// Engine shells out to the whisper CLI. The model check runs lazily
// exactly once per process; the loaded model is reused across jobs and
// regenerations.
type Engine struct {
	command         string
	model           string
	maxCharsPerLine int
	log             *zap.SugaredLogger

	once    sync.Once
	onceErr error
}

// New creates a whisper engine. command defaults to "whisper".
func New(command, model string, maxCharsPerLine int, log *zap.SugaredLogger) *Engine {
	if command == "" {
		command = "whisper"
	}
	if model == "" {
		model = "base"
	}
	return &Engine{
		command:         command,
		model:           model,
		maxCharsPerLine: maxCharsPerLine,
		log:             log,
	}
}

// ensureReady verifies the whisper binary once; concurrent first callers
// share the single check.
func (e *Engine) ensureReady() error {
	e.once.Do(func() {
		if _, err := exec.LookPath(e.command); err != nil {
			e.onceErr = fmt.Errorf("whisper command %q not found: %w", e.command, err)
			return
		}
		e.log.Infow("whisper engine ready", "command", e.command, "model", e.model)
	})
	return e.onceErr
}

// Transcribe runs whisper over audioFile and moves the resulting SRT to
// outFile.
func (e *Engine) Transcribe(ctx context.Context, audioFile, outFile string, opts stages.TranscribeOptions) error {
	if err := e.ensureReady(); err != nil {
		return err
	}

	outDir := filepath.Dir(outFile)
	args := []string{
		audioFile,
		"--model", e.model,
		"--output_format", "srt",
		"--output_dir", outDir,
	}
	if opts.Language != "" && !strings.EqualFold(opts.Language, "auto") {
		args = append(args, "--language", opts.Language)
	}
	if opts.WordTimestamps {
		args = append(args, "--word_timestamps", "True")
	}
	if e.maxCharsPerLine > 0 {
		args = append(args,
			"--max_line_width", fmt.Sprintf("%d", e.maxCharsPerLine),
			"--max_line_count", "2",
		)
	}

	cmd := exec.CommandContext(ctx, e.command, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("whisper: %w: %s", err, tail(out))
	}

	// Whisper names its output after the input file; move it into place.
	base := strings.TrimSuffix(filepath.Base(audioFile), filepath.Ext(audioFile))
	produced := filepath.Join(outDir, base+".srt")
	if produced == outFile {
		return nil
	}
	if _, err := os.Stat(produced); err != nil {
		return fmt.Errorf("whisper finished but %s is missing: %w", produced, err)
	}
	return os.Rename(produced, outFile)
}

func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > 300 {
		s = s[len(s)-300:]
	}
	return s
}
