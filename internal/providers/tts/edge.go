// Package tts implements the speech-synthesis collaborator on top of the
// edge-tts CLI, with ffprobe measuring the produced duration.
package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// EdgeTTS shells out to edge-tts (or a compatible command accepting
// --text/--output) and measures the result with ffprobe.
type EdgeTTS struct {
	command string
	log     *zap.SugaredLogger
}

// New creates the synthesizer. An empty command selects edge-tts.
func New(command string, log *zap.SugaredLogger) *EdgeTTS {
	if command == "" {
		command = "edge-tts"
	}
	return &EdgeTTS{command: command, log: log}
}

// Synthesize renders text to outFile with the given voice and returns
// the measured audio duration in seconds.
func (e *EdgeTTS) Synthesize(ctx context.Context, text, voice, outFile string) (float64, error) {
	var cmd *exec.Cmd
	switch {
	case e.command == "edge-tts":
		cmd = exec.CommandContext(ctx, "edge-tts",
			"--voice", voice,
			"--text", text,
			"--write-media", outFile,
		)
	case strings.HasSuffix(e.command, ".py"):
		cmd = exec.CommandContext(ctx, "python3", e.command,
			"--voice", voice,
			"--text", text,
			"--output", outFile,
		)
	default:
		cmd = exec.CommandContext(ctx, e.command,
			"--voice", voice,
			"--text", text,
			"--output", outFile,
		)
	}

	e.log.Debugw("running tts", "command", e.command, "voice", voice, "out", outFile)
	if out, err := cmd.CombinedOutput(); err != nil {
		return 0, fmt.Errorf("%s: %w: %s", e.command, err, firstLine(out))
	}

	duration, err := ProbeDuration(ctx, outFile)
	if err != nil {
		return 0, fmt.Errorf("measure duration: %w", err)
	}
	return duration, nil
}

// ProbeDuration reads a media file's duration in seconds via ffprobe.
func ProbeDuration(ctx context.Context, file string) (float64, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		file,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", file, err)
	}
	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
