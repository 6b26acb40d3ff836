// Package textgen contains the two tiers of the prompt-generation
// fallback chain: Groq as the primary provider and OpenAI as the
// secondary.
package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const groqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

const promptSystem = `You write image-generation prompts for a narrated slideshow video.
Given a fragment of narration, respond with ONE detailed visual prompt describing a single
still image that illustrates it: subject, setting, lighting, camera angle, artistic style.
Respond with the prompt text only, without preamble, quotes or markdown.`

// Groq is the primary text-generation provider, speaking the Groq chat
// completions API directly.
type Groq struct {
	model       string
	temperature float64
	httpClient  *http.Client
	apiKey      func() string
}

// NewGroq creates the Groq provider. The API key is read from
// GROQ_API_KEY at call time so regenerations pick up rotated keys.
func NewGroq(model string, temperature float64) *Groq {
	return &Groq{
		model:       model,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		apiKey:      func() string { return os.Getenv("GROQ_API_KEY") },
	}
}

func (g *Groq) Name() string { return "groq" }

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GeneratePrompt asks Groq for one image prompt for a script fragment.
func (g *Groq) GeneratePrompt(ctx context.Context, fragment, style string) (string, error) {
	apiKey := g.apiKey()
	if apiKey == "" {
		return "", errors.New("GROQ_API_KEY not set")
	}

	reqBody := groqRequest{
		Model: g.model,
		Messages: []groqMessage{
			{Role: "system", Content: promptSystem},
			{Role: "user", Content: buildUserPrompt(fragment, style)},
		},
		Temperature: g.temperature,
		MaxTokens:   512,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, groqEndpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", fmt.Errorf("groq HTTP %d", resp.StatusCode)
	}

	var parsed groqResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("parse groq response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("groq error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("groq returned no choices")
	}

	prompt := cleanResponse(parsed.Choices[0].Message.Content)
	if prompt == "" {
		return "", errors.New("groq returned an empty prompt")
	}
	return prompt, nil
}

func buildUserPrompt(fragment, style string) string {
	var sb strings.Builder
	if style != "" {
		fmt.Fprintf(&sb, "Visual style: %s\n\n", style)
	}
	sb.WriteString("Narration fragment:\n")
	sb.WriteString(fragment)
	return sb.String()
}

// cleanResponse strips markdown fences and surrounding quotes the models
// occasionally wrap their output in.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}
