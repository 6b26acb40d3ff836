package textgen

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI is the secondary tier of the fallback chain. It is tried
// exactly once per fragment, after the primary's retry budget runs out.
type OpenAI struct {
	model  string
	client openai.Client
}

// NewOpenAI creates the secondary provider. The client reads
// OPENAI_API_KEY from the environment.
func NewOpenAI(model string, opts ...option.RequestOption) *OpenAI {
	return &OpenAI{
		model:  model,
		client: openai.NewClient(opts...),
	}
}

func (o *OpenAI) Name() string { return "openai" }

// GeneratePrompt asks OpenAI for one image prompt for a script fragment.
func (o *OpenAI) GeneratePrompt(ctx context.Context, fragment, style string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(promptSystem),
			openai.UserMessage(buildUserPrompt(fragment, style)),
		},
		Model:       o.model,
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	prompt := cleanResponse(strings.TrimSpace(resp.Choices[0].Message.Content))
	if prompt == "" {
		return "", errors.New("openai returned an empty prompt")
	}
	return prompt, nil
}
