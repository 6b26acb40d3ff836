package domain

// RenderSettings carries the per-project rendering and style preferences,
// serialized into each project's settings.json.
type RenderSettings struct {
	// Segmentation preferences consumed by the planner.
	SegmentDuration      float64 `json:"segment_duration_sec" yaml:"segment_duration_sec"`
	UseTransitions       bool    `json:"use_transitions" yaml:"use_transitions"`
	TransitionDuration   float64 `json:"transition_duration_sec" yaml:"transition_duration_sec"`
	TransitionType       string  `json:"transition_type" yaml:"transition_type"`
	RespectExactDuration bool    `json:"respect_exact_duration" yaml:"respect_exact_duration"`
	RepeatLastSegment    bool    `json:"repeat_last_segment" yaml:"repeat_last_segment"`

	// Video track fades.
	FadeIn          bool    `json:"fade_in" yaml:"fade_in"`
	FadeInDuration  float64 `json:"fade_in_sec" yaml:"fade_in_sec"`
	FadeOut         bool    `json:"fade_out" yaml:"fade_out"`
	FadeOutDuration float64 `json:"fade_out_sec" yaml:"fade_out_sec"`

	// Audio track fades, applied to music and voice separately.
	AudioFadeIn  float64 `json:"audio_fade_in_sec" yaml:"audio_fade_in_sec"`
	AudioFadeOut float64 `json:"audio_fade_out_sec" yaml:"audio_fade_out_sec"`

	// Overlays composited above the slideshow.
	Overlays       []string `json:"overlays,omitempty" yaml:"overlays"`
	OverlayOpacity float64  `json:"overlay_opacity" yaml:"overlay_opacity"`

	// Music and voice mixing.
	MusicFile   string  `json:"music_file,omitempty" yaml:"music_file"`
	MusicVolume float64 `json:"music_volume" yaml:"music_volume"`
	VoiceVolume float64 `json:"voice_volume" yaml:"voice_volume"`

	// Caption generation and burn-in preferences.
	Captions           bool    `json:"captions" yaml:"captions"`
	CaptionLanguage    string  `json:"caption_language" yaml:"caption_language"`
	CaptionWordTimings bool    `json:"caption_word_timings" yaml:"caption_word_timings"`
	CaptionFont        string  `json:"caption_font" yaml:"caption_font"`
	CaptionFontSize    int     `json:"caption_font_size" yaml:"caption_font_size"`
	CaptionColor       string  `json:"caption_color" yaml:"caption_color"`
	CaptionStrokeColor string  `json:"caption_stroke_color" yaml:"caption_stroke_color"`
	CaptionStrokeWidth float64 `json:"caption_stroke_width" yaml:"caption_stroke_width"`
	CaptionPosition    string  `json:"caption_position" yaml:"caption_position"`
	CaptionMargin      int     `json:"caption_margin" yaml:"caption_margin"`

	// Style identifiers fed to the prompt and image providers.
	ImageStyle  string `json:"image_style" yaml:"image_style"`
	ScriptStyle string `json:"script_style" yaml:"script_style"`
}

// DefaultRenderSettings returns the baseline preferences applied when a
// submission omits them.
func DefaultRenderSettings() RenderSettings {
	return RenderSettings{
		SegmentDuration:      20,
		UseTransitions:       false,
		TransitionDuration:   1,
		TransitionType:       "fade",
		RespectExactDuration: true,
		RepeatLastSegment:    false,
		FadeInDuration:       1,
		FadeOutDuration:      2,
		AudioFadeOut:         2,
		OverlayOpacity:       0.15,
		MusicVolume:          0.12,
		VoiceVolume:          1.0,
		Captions:             true,
		CaptionLanguage:      "es",
		CaptionWordTimings:   true,
		CaptionFont:          "Arial",
		CaptionFontSize:      28,
		CaptionColor:         "white",
		CaptionStrokeColor:   "black",
		CaptionStrokeWidth:   2,
		CaptionPosition:      "bottom",
		CaptionMargin:        40,
	}
}
