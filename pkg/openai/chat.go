package openai

import (
	"context"
	"errors"
	"strings"

	"video-narrator/log"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var errEmptyReply = errors.New("model returned no choices")

func (c *Client) ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, systemPrompt, userPrompt, nil)
}

// JSONCompletion requests json_object output. The reply is not validated.
func (c *Client) JSONCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, systemPrompt, userPrompt, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string, format *openai.ChatCompletionResponseFormat) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature:    0.7,
		ResponseFormat: format,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.GetLogger().Error("openai chat completion failed", zap.String("model", c.ChatModel), zap.Error(err))
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyReply
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
