// Package openai adapts the OpenAI chat completions API to the pipeline's
// Completer contract.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)

// Client is a Completer backed by the OpenAI chat completions API.
type Client struct {
	client openai.Client
	model  string
}

// New creates an OpenAI-backed completion client.
func New(apiKey, model string) *Client {
	return &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Complete performs one chat completion with a system instruction and user
// content. Context cancellation and deadlines propagate to the HTTP call.
func (c *Client) Complete(ctx context.Context, systemInstruction, userContent string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction),
			openai.UserMessage(userContent),
		},
		Temperature:         param.NewOpt(defaultTemperature),
		MaxCompletionTokens: param.NewOpt(int64(defaultMaxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("chat completion refused: %s", choice.Message.Refusal)
	}
	return choice.Message.Content, nil
}
