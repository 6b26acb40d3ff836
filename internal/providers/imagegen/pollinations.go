// Package imagegen implements the image-generation collaborator on top
// of the Pollinations.ai HTTP endpoint.
package imagegen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
)

// Pollinations fetches generated images over HTTP. No API key needed.
type Pollinations struct {
	width      int
	height     int
	model      string
	httpClient *http.Client
	attempts   int
	sleep      func(time.Duration)
	log        *zap.SugaredLogger
}

// New creates the Pollinations image generator.
func New(width, height int, model string, log *zap.SugaredLogger) *Pollinations {
	if width <= 0 {
		width = 1920
	}
	if height <= 0 {
		height = 1080
	}
	if model == "" {
		model = "flux"
	}
	return &Pollinations{
		width:      width,
		height:     height,
		model:      model,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		attempts:   3,
		sleep:      time.Sleep,
		log:        log,
	}
}

// Generate fetches one image for prompt into outFile. seed keeps
// regeneration reproducible per segment.
func (p *Pollinations) Generate(ctx context.Context, prompt string, seed int, outFile string) error {
	imageURL := fmt.Sprintf(
		"https://image.pollinations.ai/prompt/%s?width=%d&height=%d&nologo=true&model=%s&seed=%d",
		url.PathEscape(prompt), p.width, p.height, p.model, seed*42+7,
	)

	var err error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err = p.download(ctx, imageURL, outFile); err == nil {
			return nil
		}
		p.log.Warnw("image fetch failed", "attempt", attempt, "error", err)
		if attempt < p.attempts {
			p.sleep(time.Duration(attempt) * 3 * time.Second)
		}
	}
	return fmt.Errorf("pollinations fetch failed after %d attempts: %w", p.attempts, err)
}

func (p *Pollinations) download(ctx context.Context, imageURL, outFile string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; videoforge/1.0)")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from pollinations", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	// Tiny responses are error pages, not images.
	if len(data) < 100 {
		return fmt.Errorf("response too small (%d bytes)", len(data))
	}
	return os.WriteFile(outFile, data, 0o644)
}
