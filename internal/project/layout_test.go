package project

import (
	"os"
	"path/filepath"
	"testing"

	"videoforge/internal/domain"
)

// TestSanitizeTitle covers accents, punctuation, and collapsing.
func TestSanitizeTitle(t *testing.T) {
	cases := []struct{ in, want string }{
		{"La Leyenda del Lago", "la_leyenda_del_lago"},
		{"  Misterio: ¿Qué pasó?  ", "misterio_qué_pasó"},
		{"a -- b", "a_b"},
		{"!!!", "proyecto"},
	}
	for _, tc := range cases {
		if got := SanitizeTitle(tc.in); got != tc.want {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// TestLayoutPaths verifies the artifact naming contract.
func TestLayoutPaths(t *testing.T) {
	l := New("/data/projects", "Mi Proyecto")
	if l.Root != filepath.Join("/data/projects", "mi_proyecto") {
		t.Fatalf("root = %s", l.Root)
	}
	if got := filepath.Base(l.ScriptPath()); got != "guion.txt" {
		t.Errorf("script = %s", got)
	}
	if got := filepath.Base(l.AudioPath("mp3")); got != "voz.mp3" {
		t.Errorf("audio = %s", got)
	}
	if got := filepath.Base(l.CaptionPath()); got != "subtitulos.srt" {
		t.Errorf("captions = %s", got)
	}
	if got := filepath.Base(l.ImagePath(7)); got != "mi_proyecto_007.png" {
		t.Errorf("image = %s", got)
	}
	if got := filepath.Base(l.VideoPath()); got != "mi_proyecto_final.mp4" {
		t.Errorf("video = %s", got)
	}
}

// TestSettingsRoundTripAndPartialUpdate exercises full save plus the
// sjson partial rewrite used by regeneration.
func TestSettingsRoundTripAndPartialUpdate(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, "demo")
	if err := l.Ensure(); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	job := &domain.JobRecord{
		Title:    "demo",
		Settings: domain.DefaultRenderSettings(),
		Audio:    &domain.AudioResult{Path: l.AudioPath("mp3"), Duration: 33.3},
	}
	if err := SaveSettings(l, job); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := UpdateSettingsKeys(l, map[string]interface{}{
		"audio_path":         l.AudioPath("wav"),
		"audio_duration_sec": 35.0,
	}); err != nil {
		t.Fatalf("partial update: %v", err)
	}

	dur, err := ReadSettingsKey(l, "audio_duration_sec")
	if err != nil {
		t.Fatalf("read key: %v", err)
	}
	if dur.Float() != 35.0 {
		t.Errorf("audio_duration_sec = %g, want 35", dur.Float())
	}
	title, err := ReadSettingsKey(l, "title")
	if err != nil {
		t.Fatalf("read key: %v", err)
	}
	if title.String() != "demo" {
		t.Errorf("title clobbered: %q", title.String())
	}
}

// TestExistingImages lists only segment PNGs.
func TestExistingImages(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, "imgs")
	if err := l.Ensure(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for _, name := range []string{"imgs_000.png", "imgs_001.png", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(l.ImagesDir(), name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	got := l.ExistingImages()
	if len(got) != 2 {
		t.Fatalf("found %d images, want 2", len(got))
	}
}
