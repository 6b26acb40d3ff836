package stages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"videoforge/internal/domain"
)

// errPromptPrefix marks a prompt entry whose generation exhausted both
// provider tiers. Downstream stages skip entries carrying it.
const errPromptPrefix = "ERROR:"

// PromptAdapter splits the script into one fragment per segment and asks
// the text-generation fallback chain for an image prompt per fragment.
// A fragment whose generation fails on both tiers is recorded inline and
// never aborts the batch.
type PromptAdapter struct {
	primary   TextGenerator
	secondary TextGenerator
	attempts  int
	backoff   time.Duration
	sleep     func(time.Duration)
	log       *zap.SugaredLogger
}

// NewPromptAdapter creates the prompt stage adapter. attempts is the
// retry budget against the primary provider; the secondary is always
// tried exactly once.
func NewPromptAdapter(primary, secondary TextGenerator, attempts int, backoff time.Duration, log *zap.SugaredLogger) *PromptAdapter {
	if attempts < 1 {
		attempts = 1
	}
	return &PromptAdapter{
		primary:   primary,
		secondary: secondary,
		attempts:  attempts,
		backoff:   backoff,
		sleep:     time.Sleep,
		log:       log,
	}
}

// Run produces one prompt entry per segment of the plan. The returned
// slice always has exactly plan.Count() entries.
func (p *PromptAdapter) Run(ctx context.Context, scriptText string, plan *domain.SegmentPlan, style string) []domain.PromptEntry {
	fragments := SplitScript(scriptText, plan)
	entries := make([]domain.PromptEntry, 0, len(fragments))

	for i, fragment := range fragments {
		entry := domain.PromptEntry{SourceText: fragment}

		prompt, provider, err := p.generateOne(ctx, i, fragment, style)
		if err != nil {
			p.log.Warnw("prompt generation exhausted", "fragment", i, "error", err)
			entry.GeneratedPrompt = fmt.Sprintf("%s %v", errPromptPrefix, err)
			entry.Failed = true
		} else {
			entry.GeneratedPrompt = prompt
			entry.ProviderUsed = provider
		}
		entries = append(entries, entry)
	}
	return entries
}

// generateOne walks the fallback chain for one fragment: the primary
// provider with exponential backoff, then the secondary once.
func (p *PromptAdapter) generateOne(ctx context.Context, index int, fragment, style string) (string, string, error) {
	var primaryErr error
	delay := p.backoff
	for attempt := 1; attempt <= p.attempts; attempt++ {
		prompt, err := p.primary.GeneratePrompt(ctx, fragment, style)
		if err == nil {
			return prompt, p.primary.Name(), nil
		}
		primaryErr = err
		p.log.Warnw("primary prompt provider failed",
			"provider", p.primary.Name(), "fragment", index, "attempt", attempt, "error", err)
		if attempt < p.attempts {
			p.sleep(delay)
			delay *= 2
		}
	}

	if p.secondary == nil {
		return "", "", &domain.ProviderExhaustedError{Fragment: index, Primary: primaryErr}
	}
	prompt, err := p.secondary.GeneratePrompt(ctx, fragment, style)
	if err == nil {
		return prompt, p.secondary.Name(), nil
	}
	return "", "", &domain.ProviderExhaustedError{Fragment: index, Primary: primaryErr, Fallback: err}
}

// IsErrorPrompt reports whether an entry records an exhausted fallback
// chain instead of a usable prompt.
func IsErrorPrompt(e domain.PromptEntry) bool {
	return e.Failed || strings.HasPrefix(e.GeneratedPrompt, errPromptPrefix)
}

// SplitScript cuts the script into one fragment per segment. With a plan
// present, words are allocated proportionally to each segment's share of
// the total duration; without one, fragments follow paragraph breaks.
func SplitScript(scriptText string, plan *domain.SegmentPlan) []string {
	if plan == nil || plan.Count() == 0 {
		return splitByParagraphs(scriptText)
	}

	words := strings.Fields(scriptText)
	count := plan.Count()
	fragments := make([]string, 0, count)
	if len(words) == 0 {
		for i := 0; i < count; i++ {
			fragments = append(fragments, "")
		}
		return fragments
	}

	total := 0.0
	for _, seg := range plan.Segments {
		total += seg.DurationSeconds
	}

	cursor := 0
	elapsed := 0.0
	for i, seg := range plan.Segments {
		elapsed += seg.DurationSeconds
		end := int(float64(len(words)) * elapsed / total)
		if i == count-1 {
			end = len(words)
		}
		if end < cursor {
			end = cursor
		}
		if end > len(words) {
			end = len(words)
		}
		fragments = append(fragments, strings.Join(words[cursor:end], " "))
		cursor = end
	}
	return fragments
}

func splitByParagraphs(scriptText string) []string {
	var out []string
	for _, block := range strings.Split(scriptText, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, block)
		}
	}
	if len(out) == 0 {
		out = []string{strings.TrimSpace(scriptText)}
	}
	return out
}
