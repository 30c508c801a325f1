package client

import (
	"context"
	"errors"
	"fmt"
	"mend/internal/config"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// groqClientImpl talks to Groq through its OpenAI-compatible endpoint.
type groqClientImpl struct {
	client *openai.Client
	model  string
}

func NewGroqClient(cfg *config.Groq) TextGenerator {
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL

	return &groqClientImpl{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
	}
}

func (c *groqClientImpl) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.7,
		MaxTokens:   150,
	})
	if err != nil {
		return "", fmt.Errorf("groq chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("groq returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
