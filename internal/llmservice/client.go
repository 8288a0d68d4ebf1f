package llmservice

import (
	"context"
	"strings"

	"examprep/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Client wraps an OpenAI-compatible chat completion endpoint with fixed
// decoding parameters tuned for exam explanations rather than creative
// variance.
type Client struct {
	llm         *openai.LLM
	temperature float64
	maxTokens   int
}

func NewClient(llmConfig *config.LLMConfig) (*Client, error) {
	llm, err := openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, err
	}
	return &Client{
		llm:         llm,
		temperature: 0.7,
		maxTokens:   2000,
	}, nil
}

// Complete sends the assembled message sequence to the model and returns
// the generated text.
func (c *Client) Complete(ctx context.Context, messages []llms.MessageContent) (string, error) {
	log.Debug().Int("messages", len(messages)).Msg("Generating content")
	res, err := c.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", nil
	}
	return res.Choices[0].Content, nil
}
