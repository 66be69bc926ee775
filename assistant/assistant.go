// Package assistant forwards a user question to the OpenAI chat completion API and
// returns the first answer verbatim.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/clip-tender/telemetry"
)

const provider = "openai"

// MsgFailure is returned whenever no answer could be produced.
const MsgFailure = "⚠️ An error occurred while processing the response."

var errNoChoices = errors.New("openai: response has no choices")

// Completer is the part of *openai.Client used here.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client answers questions with a single completion request.
type Client struct {
	api   Completer
	model string
}

// Options configure New.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for proxies and tests
}

// New builds a Client backed by the OpenAI HTTP API.
func New(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}
	model := opts.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &Client{api: openai.NewClientWithConfig(cfg), model: model}
}

// NewWithCompleter wires an existing Completer.
func NewWithCompleter(api Completer, model string) *Client {
	return &Client{api: api, model: model}
}

// Complete returns the first choice's content.
func (c *Client) Complete(ctx context.Context, question string) (answer string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "assistant", "chat.completion", attribute.String("model", c.model))
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		telemetry.ObserveUpstream(provider, result, time.Since(start))
		telemetry.EndSpan(span, err)
	}()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// Answer is the /answer handler body; failures become MsgFailure.
func (c *Client) Answer(ctx context.Context, question string) string {
	answer, err := c.Complete(ctx, question)
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Error("openai completion failed", slog.Any("err", err))
		return MsgFailure
	}
	if strings.TrimSpace(answer) == "" {
		return MsgFailure
	}
	return answer
}
