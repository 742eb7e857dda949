package ai

import (
	"context"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/sirupsen/logrus"
)

const defaultModel = "gpt-4o-mini"

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client talks to any OpenAI-compatible chat completions endpoint.
type Client struct {
	api   openai.Client
	model string
}

// New returns nil when no API key is configured; callers treat a nil client
// as "narratives off".
func New(cfg Config, opts ...option.RequestOption) *Client {
	if cfg.APIKey == "" {
		logrus.Info("AI narratives disabled: OPENAI_API_KEY not set")
		return nil
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	logrus.WithField("model", model).Info("AI narratives enabled")
	return &Client{api: openai.NewClient(reqOpts...), model: model}
}

func (c *Client) complete(ctx context.Context, systemMessage, userMessage string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemMessage),
			openai.UserMessage(userMessage),
		},
		MaxTokens:   openai.Int(800),
		Temperature: openai.Float(0.4),
	})
	if err != nil {
		return "", &Error{Message: "failed to generate AI response", Cause: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &Error{Message: "AI returned empty response"}
	}
	return resp.Choices[0].Message.Content, nil
}

type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}
