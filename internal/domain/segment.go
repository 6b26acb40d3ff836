package domain

// Segment is one time-bounded slice of the narration track, illustrated
// by exactly one image. Segments are contiguous and ordered by Index.
type Segment struct {
	Index           int     `json:"index"`
	StartSeconds    float64 `json:"start_sec"`
	EndSeconds      float64 `json:"end_sec"`
	DurationSeconds float64 `json:"duration_sec"`
	Repeats         bool    `json:"repeats,omitempty"`
	// RepeatExtensionSeconds is how far past its nominal length a
	// repeating last segment stretches to reach the audio end.
	RepeatExtensionSeconds float64 `json:"repeat_extension_sec,omitempty"`
}

// SegmentPlan is the complete ordered list of segments covering a
// narration track. Created once per job by the planner; immutable
// afterward unless the job is regenerated from the audio stage onward.
type SegmentPlan struct {
	Segments                  []Segment `json:"segments"`
	UsesTransitionOverlap     bool      `json:"uses_transition_overlap"`
	TransitionDurationSeconds float64   `json:"transition_duration_sec,omitempty"`
}

// Count returns the number of segments in the plan.
func (p *SegmentPlan) Count() int {
	if p == nil {
		return 0
	}
	return len(p.Segments)
}

// TotalDuration returns the end time of the last segment, which after
// finalization equals the narration duration.
func (p *SegmentPlan) TotalDuration() float64 {
	if p == nil || len(p.Segments) == 0 {
		return 0
	}
	return p.Segments[len(p.Segments)-1].EndSeconds
}

// Clone returns an independent copy of the plan.
func (p *SegmentPlan) Clone() *SegmentPlan {
	if p == nil {
		return nil
	}
	out := *p
	out.Segments = append([]Segment(nil), p.Segments...)
	return &out
}
