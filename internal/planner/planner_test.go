package planner

import (
	"math"
	"reflect"
	"testing"
)

const tolerance = 1e-6

// TestExactFiveEvenSegments verifies the exact-duration branch with no
// remainder.
func TestExactFiveEvenSegments(t *testing.T) {
	p := New(nil)
	plan, err := p.Plan(100, Prefs{
		SegmentDuration:      20,
		RespectExactDuration: true,
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	if plan.Count() != 5 {
		t.Fatalf("count = %d, want 5", plan.Count())
	}
	for _, seg := range plan.Segments {
		if math.Abs(seg.DurationSeconds-20) > tolerance {
			t.Errorf("segment %d duration = %g, want 20", seg.Index, seg.DurationSeconds)
		}
		if seg.Repeats {
			t.Errorf("segment %d unexpectedly marked repeats", seg.Index)
		}
	}
}

// TestExactLargeRemainderAddsSegment checks that a remainder above the
// repeat threshold becomes its own segment even when repeating is allowed.
func TestExactLargeRemainderAddsSegment(t *testing.T) {
	p := New(nil)
	plan, err := p.Plan(95, Prefs{
		SegmentDuration:      20,
		RespectExactDuration: true,
		RepeatLastSegment:    true,
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	// remainder 15 is not below 0.7*20=14, so no repeat: 4x20 + 1x15.
	if plan.Count() != 5 {
		t.Fatalf("count = %d, want 5", plan.Count())
	}
	last := plan.Segments[4]
	if last.Repeats {
		t.Error("last segment should not repeat")
	}
	if math.Abs(last.DurationSeconds-15) > tolerance {
		t.Errorf("last duration = %g, want 15", last.DurationSeconds)
	}
	if last.EndSeconds != 95 {
		t.Errorf("last end = %g, want 95", last.EndSeconds)
	}
}

// TestExactSmallRemainderRepeatsLast checks remainder absorption into a
// repeating last segment.
func TestExactSmallRemainderRepeatsLast(t *testing.T) {
	p := New(nil)
	plan, err := p.Plan(88, Prefs{
		SegmentDuration:      20,
		RespectExactDuration: true,
		RepeatLastSegment:    true,
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	if plan.Count() != 4 {
		t.Fatalf("count = %d, want 4", plan.Count())
	}
	last := plan.Segments[3]
	if !last.Repeats {
		t.Fatal("last segment should repeat")
	}
	if math.Abs(last.RepeatExtensionSeconds-8) > tolerance {
		t.Errorf("repeat extension = %g, want 8", last.RepeatExtensionSeconds)
	}
	if last.EndSeconds != 88 {
		t.Errorf("last end = %g, want 88", last.EndSeconds)
	}
}

// TestTransitionsOverlapChain verifies the cross-fade branch estimate and
// the adjusted per-segment duration.
func TestTransitionsOverlapChain(t *testing.T) {
	p := New(nil)
	plan, err := p.Plan(30, Prefs{
		SegmentDuration:    10,
		UseTransitions:     true,
		TransitionDuration: 2,
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	// overlap=1, estimate ceil(31/9)=4, adjusted=(30+3)/4=8.25.
	if plan.Count() != 4 {
		t.Fatalf("count = %d, want 4", plan.Count())
	}
	if !plan.UsesTransitionOverlap {
		t.Error("plan should record transition overlap")
	}
	first := plan.Segments[0]
	if math.Abs(first.DurationSeconds-8.25) > tolerance {
		t.Errorf("first duration = %g, want 8.25", first.DurationSeconds)
	}
	second := plan.Segments[1]
	if math.Abs(second.StartSeconds-7.25) > tolerance {
		t.Errorf("second start = %g, want 7.25", second.StartSeconds)
	}
	last := plan.Segments[3]
	if last.EndSeconds != 30 {
		t.Errorf("last end = %g, want 30", last.EndSeconds)
	}
}

// TestTransitionsMinimumTwoSegments ensures a single segment never
// cross-fades with itself.
func TestTransitionsMinimumTwoSegments(t *testing.T) {
	p := New(nil)
	plan, err := p.Plan(5, Prefs{
		SegmentDuration:    30,
		UseTransitions:     true,
		TransitionDuration: 2,
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Count() < 2 {
		t.Fatalf("count = %d, want >= 2 with transitions", plan.Count())
	}
	if plan.Segments[plan.Count()-1].EndSeconds != 5 {
		t.Errorf("last end = %g, want 5", plan.Segments[plan.Count()-1].EndSeconds)
	}
}

// TestTransitionsZeroDuration: enabling transitions with a zero duration
// still takes the transition branch, so the two-segment minimum and the
// overlap marker hold even though the cross-fade degenerates to a cut.
func TestTransitionsZeroDuration(t *testing.T) {
	p := New(nil)
	plan, err := p.Plan(5, Prefs{
		SegmentDuration:    30,
		UseTransitions:     true,
		TransitionDuration: 0,
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Count() < 2 {
		t.Fatalf("count = %d, want >= 2 with transitions enabled", plan.Count())
	}
	if !plan.UsesTransitionOverlap {
		t.Error("plan does not record transition overlap")
	}
	if plan.TransitionDurationSeconds != 0 {
		t.Errorf("transition duration = %g, want 0", plan.TransitionDurationSeconds)
	}
	for i := 1; i < plan.Count(); i++ {
		prev, cur := plan.Segments[i-1], plan.Segments[i]
		if math.Abs(cur.StartSeconds-prev.EndSeconds) > tolerance {
			t.Errorf("gap between segments %d and %d: %g vs %g", i-1, i, prev.EndSeconds, cur.StartSeconds)
		}
	}
	if got := plan.Segments[plan.Count()-1].EndSeconds; got != 5 {
		t.Errorf("last end = %g, want 5", got)
	}
}

// TestCoverageInvariantWithoutTransitions checks that branch B segment
// durations always sum to the audio duration.
func TestCoverageInvariantWithoutTransitions(t *testing.T) {
	p := New(nil)
	cases := []struct {
		audio, target float64
		exact, repeat bool
	}{
		{100, 20, true, false},
		{95, 20, true, true},
		{88, 20, true, true},
		{61.3, 20, true, false},
		{7.5, 20, true, false},
		{100, 20, false, false},
		{123.456, 17, false, false},
		{59.99, 8, true, true},
		{0.25, 10, true, false},
		{600, 12, true, false},
	}
	for _, tc := range cases {
		plan, err := p.Plan(tc.audio, Prefs{
			SegmentDuration:      tc.target,
			RespectExactDuration: tc.exact,
			RepeatLastSegment:    tc.repeat,
		})
		if err != nil {
			t.Fatalf("plan(%g, %g): %v", tc.audio, tc.target, err)
		}
		if plan.Count() < 1 {
			t.Fatalf("plan(%g, %g): empty plan", tc.audio, tc.target)
		}

		var sum float64
		for _, seg := range plan.Segments {
			sum += seg.DurationSeconds
		}
		if math.Abs(sum-tc.audio) > tolerance {
			t.Errorf("plan(%g, %g): durations sum to %g", tc.audio, tc.target, sum)
		}
		if got := plan.Segments[plan.Count()-1].EndSeconds; got != tc.audio {
			t.Errorf("plan(%g, %g): last end = %g", tc.audio, tc.target, got)
		}
	}
}

// TestSegmentsContiguous verifies ordering and contiguity across both
// branches.
func TestSegmentsContiguous(t *testing.T) {
	p := New(nil)
	for _, prefs := range []Prefs{
		{SegmentDuration: 15, RespectExactDuration: true},
		{SegmentDuration: 15},
		{SegmentDuration: 15, UseTransitions: true, TransitionDuration: 1.5},
	} {
		plan, err := p.Plan(73.7, prefs)
		if err != nil {
			t.Fatalf("plan: %v", err)
		}
		overlap := 0.0
		if prefs.UseTransitions {
			overlap = prefs.TransitionDuration / 2
		}
		for i, seg := range plan.Segments {
			if seg.Index != i {
				t.Errorf("segment %d has index %d", i, seg.Index)
			}
			if math.Abs(seg.DurationSeconds-(seg.EndSeconds-seg.StartSeconds)) > tolerance {
				t.Errorf("segment %d duration inconsistent", i)
			}
			if i == 0 {
				if seg.StartSeconds != 0 {
					t.Errorf("first segment starts at %g", seg.StartSeconds)
				}
				continue
			}
			prev := plan.Segments[i-1]
			want := prev.EndSeconds - overlap
			// The forced last end breaks the chain relation for the
			// final pair only when drift was corrected.
			if i < len(plan.Segments)-1 && math.Abs(seg.StartSeconds-want) > tolerance {
				t.Errorf("segment %d starts at %g, want %g", i, seg.StartSeconds, want)
			}
		}
	}
}

// TestDeterminism checks that identical inputs yield identical plans.
func TestDeterminism(t *testing.T) {
	p := New(nil)
	prefs := Prefs{
		SegmentDuration:    11,
		UseTransitions:     true,
		TransitionDuration: 2.4,
	}
	a, err := p.Plan(247.9, prefs)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	b, err := p.Plan(247.9, prefs)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("plans differ for identical inputs")
	}
}

// TestLongAudioConservativeCount checks the >60s correction keeps the
// count near audio/target instead of over-segmenting.
func TestLongAudioConservativeCount(t *testing.T) {
	p := New(nil)
	plan, err := p.Plan(600, Prefs{
		SegmentDuration:    10,
		UseTransitions:     true,
		TransitionDuration: 8,
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	// Without the conservative branch the overlap-driven estimate would
	// balloon past floor(600/10)+1 = 61.
	if plan.Count() > 61 {
		t.Errorf("count = %d, want <= 61", plan.Count())
	}
	if plan.Segments[plan.Count()-1].EndSeconds != 600 {
		t.Errorf("last end = %g, want 600", plan.Segments[plan.Count()-1].EndSeconds)
	}
}

// TestInvalidDuration verifies the only error path.
func TestInvalidDuration(t *testing.T) {
	p := New(nil)
	for _, bad := range []float64{0, -3} {
		if _, err := p.Plan(bad, Prefs{SegmentDuration: 10}); err == nil {
			t.Errorf("Plan(%g) = nil error, want InvalidInputError", bad)
		}
	}
}
