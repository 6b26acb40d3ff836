package planner

import (
	"math"

	"go.uber.org/zap"

	"videoforge/internal/domain"
)

const (
	// longAudioCutoff is the duration above which the conservative
	// segment-count formula takes over. Kept as a tunable rather than a
	// derived value.
	longAudioCutoff = 60.0
	// repeatThreshold is the fraction of the target duration below which
	// a trailing remainder is absorbed into a repeating last segment.
	repeatThreshold = 0.7
	// minStep bounds the per-segment advance when transitions eat most
	// of the target duration.
	minStep = 0.5
	// driftWarn is the rounding drift on the last segment above which a
	// diagnostic is logged before correction.
	driftWarn = 0.05

	shortRemainderEps = 0.01
	longRemainderEps  = 0.5
)

// Prefs are the formatting preferences the planner consumes, extracted
// from a job's render settings.
type Prefs struct {
	SegmentDuration      float64
	TransitionDuration   float64
	UseTransitions       bool
	RespectExactDuration bool
	RepeatLastSegment    bool
}

// PrefsFromSettings pulls the planner-relevant fields out of a job's
// render settings.
func PrefsFromSettings(s domain.RenderSettings) Prefs {
	return Prefs{
		SegmentDuration:      s.SegmentDuration,
		TransitionDuration:   s.TransitionDuration,
		UseTransitions:       s.UseTransitions,
		RespectExactDuration: s.RespectExactDuration,
		RepeatLastSegment:    s.RepeatLastSegment,
	}
}

// Planner computes segment plans. Plan is deterministic: identical inputs
// always produce identical plans.
type Planner struct {
	log *zap.SugaredLogger
}

// New creates a planner. A nil logger disables diagnostics.
func New(log *zap.SugaredLogger) *Planner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Planner{log: log}
}

// Plan computes the segment plan covering audioDuration seconds of
// narration. The returned plan's last segment always ends exactly at
// audioDuration.
func (p *Planner) Plan(audioDuration float64, prefs Prefs) (*domain.SegmentPlan, error) {
	if audioDuration <= 0 {
		return nil, &domain.InvalidInputError{Name: "audio duration", Value: audioDuration}
	}
	target := prefs.SegmentDuration
	if target <= 0 {
		target = 20
	}

	var plan *domain.SegmentPlan
	if prefs.UseTransitions {
		plan = p.planWithTransitions(audioDuration, target, prefs.TransitionDuration)
	} else {
		plan = p.planWithoutTransitions(audioDuration, target, prefs)
	}

	p.finalize(plan, audioDuration)
	return plan, nil
}

// planWithTransitions builds overlapping segments so that adjacent pairs
// cross-fade over transitionDuration/2 and the chain still lands exactly
// on the audio end.
func (p *Planner) planWithTransitions(audioDuration, target, transitionDuration float64) *domain.SegmentPlan {
	if transitionDuration < 0 {
		transitionDuration = 0
	}
	// A zero transition degenerates to hard cuts, but the minimum of two
	// segments still holds.
	overlap := transitionDuration / 2
	if target <= overlap {
		target = overlap + 1
	}

	step := target - overlap
	if step < minStep {
		step = minStep
	}
	count := int(math.Ceil((audioDuration + overlap) / step))
	if count < 2 {
		count = 2
	}
	if audioDuration > longAudioCutoff {
		conservative := int(math.Floor(audioDuration/target)) + 1
		if conservative < count {
			count = conservative
		}
		if count < 2 {
			count = 2
		}
	}

	adjusted := (audioDuration + float64(count-1)*overlap) / float64(count)
	if audioDuration > longAudioCutoff && adjusted < target/2 {
		count = int(math.Floor(audioDuration/target)) + 1
		if count < 2 {
			count = 2
		}
		adjusted = (audioDuration + float64(count-1)*overlap) / float64(count)
	}

	segments := make([]domain.Segment, 0, count)
	start := 0.0
	for i := 0; i < count; i++ {
		end := start + adjusted
		if i == count-1 {
			end = audioDuration
		}
		segments = append(segments, domain.Segment{
			Index:           i,
			StartSeconds:    start,
			EndSeconds:      end,
			DurationSeconds: end - start,
		})
		// The next segment begins where this one visually ends, minus
		// the cross-fade overlap.
		start = start + adjusted - overlap
	}

	return &domain.SegmentPlan{
		Segments:                  segments,
		UsesTransitionOverlap:     true,
		TransitionDurationSeconds: transitionDuration,
	}
}

func (p *Planner) planWithoutTransitions(audioDuration, target float64, prefs Prefs) *domain.SegmentPlan {
	if prefs.RespectExactDuration {
		return p.planExact(audioDuration, target, prefs.RepeatLastSegment)
	}
	return p.planUniform(audioDuration, target)
}

// planExact gives every segment except possibly the last exactly the
// target duration.
func (p *Planner) planExact(audioDuration, target float64, repeatLast bool) *domain.SegmentPlan {
	full := int(math.Floor(audioDuration / target))
	remainder := audioDuration - float64(full)*target

	eps := shortRemainderEps
	if audioDuration > longAudioCutoff {
		eps = longRemainderEps
	}

	var segments []domain.Segment
	switch {
	case full == 0:
		// Audio shorter than one target segment: a single segment
		// covers everything.
		segments = []domain.Segment{{
			Index:           0,
			EndSeconds:      audioDuration,
			DurationSeconds: audioDuration,
		}}

	case remainder < eps:
		segments = buildUniform(full, target)

	case repeatLast && remainder < repeatThreshold*target:
		// Absorb the remainder into a repeating last segment whose
		// rendered end still reaches the audio end.
		segments = buildUniform(full, target)
		last := &segments[full-1]
		last.Repeats = true
		last.RepeatExtensionSeconds = remainder
		last.EndSeconds = audioDuration
		last.DurationSeconds = last.EndSeconds - last.StartSeconds

	default:
		segments = buildUniform(full, target)
		start := float64(full) * target
		segments = append(segments, domain.Segment{
			Index:           full,
			StartSeconds:    start,
			EndSeconds:      audioDuration,
			DurationSeconds: remainder,
		})
	}

	return &domain.SegmentPlan{Segments: segments}
}

// planUniform distributes the audio evenly across the estimated count.
func (p *Planner) planUniform(audioDuration, target float64) *domain.SegmentPlan {
	var count int
	if audioDuration > longAudioCutoff {
		count = int(math.Floor(audioDuration/target)) + 1
	} else {
		count = int(math.Ceil(audioDuration / target))
	}
	if count < 1 {
		count = 1
	}

	each := audioDuration / float64(count)
	segments := make([]domain.Segment, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * each
		segments = append(segments, domain.Segment{
			Index:           i,
			StartSeconds:    start,
			EndSeconds:      start + each,
			DurationSeconds: each,
		})
	}
	return &domain.SegmentPlan{Segments: segments}
}

// buildUniform produces count contiguous segments of exactly target
// seconds each.
func buildUniform(count int, target float64) []domain.Segment {
	segments := make([]domain.Segment, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * target
		segments = append(segments, domain.Segment{
			Index:           i,
			StartSeconds:    start,
			EndSeconds:      start + target,
			DurationSeconds: target,
		})
	}
	return segments
}

// finalize forces the last segment to end exactly at the audio duration,
// correcting accumulated rounding drift.
func (p *Planner) finalize(plan *domain.SegmentPlan, audioDuration float64) {
	if len(plan.Segments) == 0 {
		return
	}
	last := &plan.Segments[len(plan.Segments)-1]
	drift := math.Abs(last.EndSeconds - audioDuration)
	if drift > driftWarn {
		p.log.Warnw("segment plan drift corrected",
			"drift_sec", drift,
			"segments", len(plan.Segments),
			"audio_sec", audioDuration)
	}
	last.EndSeconds = audioDuration
	last.DurationSeconds = last.EndSeconds - last.StartSeconds
}
