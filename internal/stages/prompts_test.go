package stages

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"videoforge/internal/domain"
)

type fakeGenerator struct {
	name  string
	fail  bool
	calls int
}

func (g *fakeGenerator) Name() string { return g.name }

func (g *fakeGenerator) GeneratePrompt(ctx context.Context, fragment, style string) (string, error) {
	g.calls++
	if g.fail {
		return "", errors.New("quota exceeded")
	}
	return "a painting of " + fragment, nil
}

func newTestAdapter(primary, secondary TextGenerator) *PromptAdapter {
	a := NewPromptAdapter(primary, secondary, 3, time.Millisecond, zap.NewNop().Sugar())
	a.sleep = func(time.Duration) {} // no real waiting in tests
	return a
}

func planOf(durations ...float64) *domain.SegmentPlan {
	plan := &domain.SegmentPlan{}
	start := 0.0
	for i, d := range durations {
		plan.Segments = append(plan.Segments, domain.Segment{
			Index:           i,
			StartSeconds:    start,
			EndSeconds:      start + d,
			DurationSeconds: d,
		})
		start += d
	}
	return plan
}

// TestFallbackChainUsesSecondary: primary always fails, secondary always
// succeeds, so every entry is attributed to the secondary and none is an
// error.
func TestFallbackChainUsesSecondary(t *testing.T) {
	primary := &fakeGenerator{name: "groq", fail: true}
	secondary := &fakeGenerator{name: "openai"}
	a := newTestAdapter(primary, secondary)

	entries := a.Run(context.Background(), "uno dos tres cuatro", planOf(10, 10), "noir")
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	for i, e := range entries {
		if IsErrorPrompt(e) {
			t.Errorf("entry %d marked error", i)
		}
		if e.ProviderUsed != "openai" {
			t.Errorf("entry %d provider = %q, want openai", i, e.ProviderUsed)
		}
	}
	if primary.calls != 6 {
		t.Errorf("primary calls = %d, want 3 attempts x 2 fragments", primary.calls)
	}
	if secondary.calls != 2 {
		t.Errorf("secondary calls = %d, want 2", secondary.calls)
	}
}

// TestFallbackChainPrimaryWins: no fallback when the primary succeeds.
func TestFallbackChainPrimaryWins(t *testing.T) {
	primary := &fakeGenerator{name: "groq"}
	secondary := &fakeGenerator{name: "openai"}
	a := newTestAdapter(primary, secondary)

	entries := a.Run(context.Background(), "texto de prueba", planOf(5), "noir")
	if entries[0].ProviderUsed != "groq" {
		t.Fatalf("provider = %q, want groq", entries[0].ProviderUsed)
	}
	if secondary.calls != 0 {
		t.Fatalf("secondary called %d times, want 0", secondary.calls)
	}
}

// TestFallbackChainExhausted records an inline error and keeps going.
func TestFallbackChainExhausted(t *testing.T) {
	a := newTestAdapter(
		&fakeGenerator{name: "groq", fail: true},
		&fakeGenerator{name: "openai", fail: true},
	)

	entries := a.Run(context.Background(), "uno dos tres cuatro", planOf(10, 10), "noir")
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 despite failures", len(entries))
	}
	for i, e := range entries {
		if !IsErrorPrompt(e) {
			t.Errorf("entry %d not marked error", i)
		}
		if !strings.HasPrefix(e.GeneratedPrompt, "ERROR:") {
			t.Errorf("entry %d prompt = %q, want ERROR: prefix", i, e.GeneratedPrompt)
		}
	}
}

// TestSplitScriptProportional allocates words by duration share and
// always yields one fragment per segment.
func TestSplitScriptProportional(t *testing.T) {
	words := make([]string, 100)
	for i := range words {
		words[i] = "palabra"
	}
	text := strings.Join(words, " ")

	fragments := SplitScript(text, planOf(30, 10, 10))
	if len(fragments) != 3 {
		t.Fatalf("fragments = %d, want 3", len(fragments))
	}
	counts := make([]int, 3)
	for i, f := range fragments {
		counts[i] = len(strings.Fields(f))
	}
	if counts[0] != 60 || counts[1] != 20 || counts[2] != 20 {
		t.Fatalf("word counts = %v, want [60 20 20]", counts)
	}
}

// TestSplitScriptMoreSegmentsThanWords still returns one fragment per
// segment.
func TestSplitScriptMoreSegmentsThanWords(t *testing.T) {
	fragments := SplitScript("solo dos", planOf(5, 5, 5, 5))
	if len(fragments) != 4 {
		t.Fatalf("fragments = %d, want 4", len(fragments))
	}
}

// TestSplitScriptParagraphFallback splits on blank lines without a plan.
func TestSplitScriptParagraphFallback(t *testing.T) {
	fragments := SplitScript("primero\n\nsegundo\n\n\n\ntercero", nil)
	if len(fragments) != 3 {
		t.Fatalf("fragments = %d, want 3", len(fragments))
	}
	if fragments[1] != "segundo" {
		t.Fatalf("fragment 1 = %q", fragments[1])
	}
}
