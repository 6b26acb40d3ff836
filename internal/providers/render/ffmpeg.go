// Package render implements the rendering collaborator with ffmpeg: one
// Ken Burns clip per segment, optional cross-fades driven by the segment
// plan, audio mixing, and subtitle burn-in.
package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"videoforge/internal/domain"
	"videoforge/internal/stages"
)

// Options carry the encoder-level knobs shared by every project.
type Options struct {
	FPS          int
	Width        int
	Height       int
	Preset       string
	CRF          int
	KenBurnsZoom float64
}

// FFmpeg assembles final videos by shelling out to ffmpeg.
type FFmpeg struct {
	opts Options
	log  *zap.SugaredLogger
}

// New creates the ffmpeg renderer.
func New(opts Options, log *zap.SugaredLogger) *FFmpeg {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.Width <= 0 {
		opts.Width = 1920
	}
	if opts.Height <= 0 {
		opts.Height = 1080
	}
	if opts.Preset == "" {
		opts.Preset = "fast"
	}
	if opts.CRF <= 0 {
		opts.CRF = 22
	}
	if opts.KenBurnsZoom <= 1 {
		opts.KenBurnsZoom = 1.08
	}
	return &FFmpeg{opts: opts, log: log}
}

// Render builds the final video for one request.
func (f *FFmpeg) Render(ctx context.Context, req stages.RenderRequest) error {
	if len(req.Images) == 0 {
		return fmt.Errorf("no images to render")
	}
	if req.Plan.Count() == 0 {
		return fmt.Errorf("empty segment plan")
	}

	workDir := filepath.Join(req.WorkDir, "render")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create render workspace: %w", err)
	}

	clips, err := f.buildSegmentClips(ctx, req, workDir)
	if err != nil {
		return err
	}

	silent, err := f.assembleSlideshow(ctx, req, clips, workDir)
	if err != nil {
		return err
	}

	if req.Settings.FadeIn || req.Settings.FadeOut {
		faded, err := f.applyFades(ctx, silent, req, workDir)
		if err != nil {
			f.log.Warnw("video fade failed, continuing without it", "error", err)
		} else {
			silent = faded
		}
	}

	if len(req.Settings.Overlays) > 0 {
		silent, err = f.applyOverlay(ctx, silent, req.Settings, workDir)
		if err != nil {
			f.log.Warnw("overlay failed, continuing without it", "error", err)
		}
	}

	if req.CaptionFile != "" && req.Settings.Captions {
		burned, err := f.burnSubtitles(ctx, silent, req.CaptionFile, req.Settings, workDir)
		if err != nil {
			f.log.Warnw("subtitle burn failed, continuing without captions", "error", err)
		} else {
			silent = burned
		}
	}

	audio, err := f.mixAudio(ctx, req, workDir)
	if err != nil {
		return err
	}

	return f.combine(ctx, silent, audio, req.OutFile)
}

// buildSegmentClips renders one Ken Burns clip per segment. When fewer
// images than segments survived the image stage, the last image covers
// the remaining segments.
func (f *FFmpeg) buildSegmentClips(ctx context.Context, req stages.RenderRequest, workDir string) ([]string, error) {
	clips := make([]string, 0, req.Plan.Count())
	for _, seg := range req.Plan.Segments {
		img := req.Images[min(seg.Index, len(req.Images)-1)]
		outFile := filepath.Join(workDir, fmt.Sprintf("clip_%03d.mp4", seg.Index))

		totalFrames := int(seg.DurationSeconds * float64(f.opts.FPS))
		if totalFrames < 1 {
			totalFrames = 1
		}
		zoomStep := (f.opts.KenBurnsZoom - 1.0) / float64(totalFrames)
		filter := fmt.Sprintf(
			"scale=%d:%d,zoompan=z='min(zoom+%.6f,%.3f)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:fps=%d,scale=%d:%d,setsar=1",
			f.opts.Width*2, f.opts.Height*2,
			zoomStep, f.opts.KenBurnsZoom,
			totalFrames, f.opts.FPS,
			f.opts.Width, f.opts.Height,
		)

		err := f.run(ctx, "-y",
			"-loop", "1",
			"-i", img,
			"-vf", filter,
			"-t", fmt.Sprintf("%.3f", seg.DurationSeconds),
			"-c:v", "libx264",
			"-preset", f.opts.Preset,
			"-crf", fmt.Sprintf("%d", f.opts.CRF),
			"-pix_fmt", "yuv420p",
			"-an",
			outFile,
		)
		if err != nil {
			return nil, fmt.Errorf("segment %d clip: %w", seg.Index, err)
		}
		clips = append(clips, outFile)
	}
	return clips, nil
}

// assembleSlideshow joins segment clips, cross-fading per the plan when
// transitions are enabled.
func (f *FFmpeg) assembleSlideshow(ctx context.Context, req stages.RenderRequest, clips []string, workDir string) (string, error) {
	outFile := filepath.Join(workDir, "slideshow.mp4")
	if req.Plan.UsesTransitionOverlap && len(clips) > 1 {
		return outFile, f.xfadeChain(ctx, req, clips, outFile)
	}
	return outFile, f.concat(ctx, clips, outFile)
}

// xfadeChain builds the filter graph chaining every adjacent pair with an
// xfade whose offset comes straight from the segment plan, so the result
// lands exactly on the narration duration.
func (f *FFmpeg) xfadeChain(ctx context.Context, req stages.RenderRequest, clips []string, outFile string) error {
	overlap := req.Plan.TransitionDurationSeconds / 2
	transition := req.Settings.TransitionType
	if transition == "" {
		transition = "fade"
	}

	args := []string{"-y"}
	for _, clip := range clips {
		args = append(args, "-i", clip)
	}

	var filters []string
	prev := "[0:v]"
	for i := 1; i < len(clips); i++ {
		label := fmt.Sprintf("[x%d]", i)
		if i == len(clips)-1 {
			label = "[out]"
		}
		offset := req.Plan.Segments[i].StartSeconds
		filters = append(filters, fmt.Sprintf(
			"%s[%d:v]xfade=transition=%s:duration=%.3f:offset=%.3f%s",
			prev, i, transition, overlap, offset, label,
		))
		prev = label
	}

	args = append(args,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", "[out]",
		"-c:v", "libx264",
		"-preset", f.opts.Preset,
		"-crf", fmt.Sprintf("%d", f.opts.CRF),
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
	return f.run(ctx, args...)
}

func (f *FFmpeg) concat(ctx context.Context, clips []string, outFile string) error {
	listFile := filepath.Join(filepath.Dir(outFile), "concat_list.txt")
	var lines []string
	for _, clip := range clips {
		lines = append(lines, fmt.Sprintf("file '%s'", clip))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return err
	}
	return f.run(ctx, "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outFile,
	)
}

// applyFades re-encodes the slideshow with fade-from-black and
// fade-to-black on the video track.
func (f *FFmpeg) applyFades(ctx context.Context, videoFile string, req stages.RenderRequest, workDir string) (string, error) {
	outFile := filepath.Join(workDir, "faded.mp4")
	total := req.Plan.TotalDuration()

	var parts []string
	if req.Settings.FadeIn && req.Settings.FadeInDuration > 0 {
		parts = append(parts, fmt.Sprintf("fade=t=in:st=0:d=%.2f", req.Settings.FadeInDuration))
	}
	if req.Settings.FadeOut && req.Settings.FadeOutDuration > 0 {
		parts = append(parts, fmt.Sprintf("fade=t=out:st=%.2f:d=%.2f", total-req.Settings.FadeOutDuration, req.Settings.FadeOutDuration))
	}
	if len(parts) == 0 {
		return videoFile, nil
	}

	err := f.run(ctx, "-y",
		"-i", videoFile,
		"-vf", strings.Join(parts, ","),
		"-c:v", "libx264",
		"-preset", f.opts.Preset,
		"-crf", fmt.Sprintf("%d", f.opts.CRF),
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
	if err != nil {
		return videoFile, err
	}
	return outFile, nil
}

// applyOverlay blends the first configured overlay file over the whole
// slideshow at the configured opacity.
func (f *FFmpeg) applyOverlay(ctx context.Context, videoFile string, settings domain.RenderSettings, workDir string) (string, error) {
	outFile := filepath.Join(workDir, "overlaid.mp4")
	opacity := settings.OverlayOpacity
	if opacity <= 0 || opacity > 1 {
		opacity = 0.15
	}
	filter := fmt.Sprintf(
		"[1:v]scale=%d:%d,format=rgba,colorchannelmixer=aa=%.3f[ovl];[0:v][ovl]overlay=0:0:shortest=1[out]",
		f.opts.Width, f.opts.Height, opacity,
	)
	err := f.run(ctx, "-y",
		"-i", videoFile,
		"-stream_loop", "-1",
		"-i", settings.Overlays[0],
		"-filter_complex", filter,
		"-map", "[out]",
		"-c:v", "libx264",
		"-preset", f.opts.Preset,
		"-crf", fmt.Sprintf("%d", f.opts.CRF),
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
	if err != nil {
		return videoFile, err
	}
	return outFile, nil
}

// burnSubtitles re-encodes with the caption track styled per the job's
// preferences.
func (f *FFmpeg) burnSubtitles(ctx context.Context, videoFile, srtFile string, settings domain.RenderSettings, workDir string) (string, error) {
	outFile := filepath.Join(workDir, "subtitled.mp4")

	alignment := 2 // bottom center
	if settings.CaptionPosition == "top" {
		alignment = 8
	}
	filter := fmt.Sprintf(
		"subtitles=%s:force_style='FontName=%s,FontSize=%d,PrimaryColour=%s,OutlineColour=%s,Outline=%.0f,Alignment=%d,MarginV=%d'",
		escapeSubtitlePath(srtFile),
		settings.CaptionFont,
		settings.CaptionFontSize,
		assColor(settings.CaptionColor),
		assColor(settings.CaptionStrokeColor),
		settings.CaptionStrokeWidth,
		alignment,
		settings.CaptionMargin,
	)

	err := f.run(ctx, "-y",
		"-i", videoFile,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", f.opts.Preset,
		"-crf", fmt.Sprintf("%d", f.opts.CRF),
		"-an",
		outFile,
	)
	if err != nil {
		return videoFile, err
	}
	return outFile, nil
}

// mixAudio prepares the final audio track: voice at its configured
// volume, plus optional background music with fades.
func (f *FFmpeg) mixAudio(ctx context.Context, req stages.RenderRequest, workDir string) (string, error) {
	outFile := filepath.Join(workDir, "audio_mixed.m4a")
	s := req.Settings

	voiceVol := s.VoiceVolume
	if voiceVol <= 0 {
		voiceVol = 1
	}

	if s.MusicFile == "" {
		err := f.run(ctx, "-y",
			"-i", req.AudioFile,
			"-af", fmt.Sprintf("volume=%.3f", voiceVol),
			"-c:a", "aac",
			outFile,
		)
		return outFile, err
	}

	total := req.Plan.TotalDuration()
	musicFilter := fmt.Sprintf("[1:a]volume=%.3f", s.MusicVolume)
	if s.AudioFadeIn > 0 {
		musicFilter += fmt.Sprintf(",afade=t=in:st=0:d=%.2f", s.AudioFadeIn)
	}
	if s.AudioFadeOut > 0 {
		musicFilter += fmt.Sprintf(",afade=t=out:st=%.2f:d=%.2f", total-s.AudioFadeOut, s.AudioFadeOut)
	}
	filter := fmt.Sprintf(
		"[0:a]volume=%.3f[voz];%s[musica];[voz][musica]amix=inputs=2:duration=first:normalize=0[aout]",
		voiceVol, musicFilter,
	)

	err := f.run(ctx, "-y",
		"-i", req.AudioFile,
		"-stream_loop", "-1",
		"-i", s.MusicFile,
		"-filter_complex", filter,
		"-map", "[aout]",
		"-c:a", "aac",
		"-t", fmt.Sprintf("%.3f", total),
		outFile,
	)
	return outFile, err
}

// combine muxes the silent video and the mixed audio into the final MP4.
func (f *FFmpeg) combine(ctx context.Context, videoFile, audioFile, outFile string) error {
	return f.run(ctx, "-y",
		"-i", videoFile,
		"-i", audioFile,
		"-c:v", "copy",
		"-c:a", "copy",
		"-shortest",
		"-movflags", "+faststart",
		outFile,
	)
}

func (f *FFmpeg) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", args[len(args)-1], err, tail(out))
	}
	return nil
}

func escapeSubtitlePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	return path
}

// assColor maps a handful of friendly color names to ASS &HAABBGGRR form.
func assColor(name string) string {
	switch strings.ToLower(name) {
	case "black":
		return "&H00000000"
	case "yellow":
		return "&H0000FFFF"
	case "red":
		return "&H000000FF"
	default:
		return "&H00FFFFFF"
	}
}

func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > 400 {
		s = s[len(s)-400:]
	}
	return s
}
