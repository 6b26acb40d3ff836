package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"videoforge/internal/domain"
)

// Layout resolves the on-disk locations of one project's artifacts:
//
//	<root>/guion.txt            raw script text
//	<root>/settings.json        render settings + stage artifacts
//	<root>/voz.<ext>            narration audio
//	<root>/subtitulos.srt       caption track
//	<root>/prompts.txt          human-readable prompt dump
//	<root>/imagenes/            one image per segment
//	<root>/<name>_final.mp4     finished video
type Layout struct {
	Root string
	Name string
}

// New derives a project layout under baseDir from the job title.
func New(baseDir, title string) Layout {
	name := SanitizeTitle(title)
	return Layout{
		Root: filepath.Join(baseDir, name),
		Name: name,
	}
}

// FromFolder rebuilds a layout from a job's stored output folder.
func FromFolder(folder string) Layout {
	return Layout{Root: folder, Name: filepath.Base(folder)}
}

// Ensure creates the project folder tree.
func (l Layout) Ensure() error {
	return os.MkdirAll(l.ImagesDir(), 0o755)
}

func (l Layout) ScriptPath() string   { return filepath.Join(l.Root, "guion.txt") }
func (l Layout) SettingsPath() string { return filepath.Join(l.Root, "settings.json") }
func (l Layout) CaptionPath() string  { return filepath.Join(l.Root, "subtitulos.srt") }
func (l Layout) PromptsPath() string  { return filepath.Join(l.Root, "prompts.txt") }
func (l Layout) ImagesDir() string    { return filepath.Join(l.Root, "imagenes") }

// AudioPath returns the narration artifact path for the given container
// extension ("mp3", "wav", ...).
func (l Layout) AudioPath(ext string) string {
	return filepath.Join(l.Root, "voz."+strings.TrimPrefix(ext, "."))
}

// ImagePath returns the artifact path for one segment's image.
func (l Layout) ImagePath(index int) string {
	return filepath.Join(l.ImagesDir(), fmt.Sprintf("%s_%03d.png", l.Name, index))
}

// VideoPath returns the final video artifact path.
func (l Layout) VideoPath() string {
	return filepath.Join(l.Root, l.Name+"_final.mp4")
}

// WriteScript stores the raw script text as guion.txt.
func (l Layout) WriteScript(text string) error {
	return os.WriteFile(l.ScriptPath(), []byte(text), 0o644)
}

// ExistingImages returns the segment images already on disk, in index
// order. Used to decide whether a failed image stage can fall back to a
// previous run's artifacts.
func (l Layout) ExistingImages() []string {
	entries, err := os.ReadDir(l.ImagesDir())
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}
		out = append(out, filepath.Join(l.ImagesDir(), e.Name()))
	}
	return out
}

// WritePromptDump persists the prompt list in a human-readable form, one
// block per segment.
func (l Layout) WritePromptDump(entries []domain.PromptEntry) error {
	var sb strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&sb, "=== Segmento %d ===\n", i+1)
		fmt.Fprintf(&sb, "Texto: %s\n", strings.TrimSpace(e.SourceText))
		fmt.Fprintf(&sb, "Prompt: %s\n", e.GeneratedPrompt)
		if e.ProviderUsed != "" {
			fmt.Fprintf(&sb, "Proveedor: %s\n", e.ProviderUsed)
		}
		sb.WriteString("\n")
	}
	return os.WriteFile(l.PromptsPath(), []byte(sb.String()), 0o644)
}

// SanitizeTitle turns a free-form title into a safe folder name.
func SanitizeTitle(title string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(unicode.ToLower(r))
		case r == ' ' || r == '-' || r == '_':
			sb.WriteRune('_')
		}
	}
	name := strings.Trim(sb.String(), "_")
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	if name == "" {
		name = "proyecto"
	}
	const maxLen = 60
	if len(name) > maxLen {
		name = name[:maxLen]
	}
	return name
}
