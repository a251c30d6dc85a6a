// Package openai implements the VisionClient interface on top of the
// OpenAI chat-completion API (or any server speaking the same protocol).
package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/visionlab/vision-analyzer/pkg/client"
)

// Client wraps the go-openai SDK client.
type Client struct {
	api *openai.Client
}

// NewClient creates a client for api.openai.com using the given key.
func NewClient(apiKey string) *Client {
	return NewClientWithBaseURL(apiKey, "")
}

// NewClientWithBaseURL creates a client against a custom endpoint, e.g. a
// local OpenAI-compatible server. An empty baseURL keeps the SDK default.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &Client{api: openai.NewClientWithConfig(cfg)}
}

// Complete sends a single user message holding the prompt as a text part
// followed by one image_url part per payload, then normalizes the response.
// The per-image detail hint is forwarded only when set.
func (c *Client) Complete(ctx context.Context, req client.Request) (*client.Response, error) {
	parts := make([]openai.ChatMessagePart, 0, len(req.Images)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: req.Prompt,
	})

	for _, img := range req.Images {
		imageURL := &openai.ChatMessageImageURL{URL: img.Ref()}
		if img.Detail != "" {
			imageURL.Detail = openai.ImageURLDetail(img.Detail)
		}
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: imageURL,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	out := &client.Response{
		ID:      resp.ID,
		Model:   resp.Model,
		Created: resp.Created,
		Choices: make([]client.Choice, 0, len(resp.Choices)),
		Usage: client.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, ch := range resp.Choices {
		out.Choices = append(out.Choices, client.Choice{
			Index: ch.Index,
			Message: client.Message{
				Role:    ch.Message.Role,
				Content: ch.Message.Content,
			},
			FinishReason: string(ch.FinishReason),
		})
	}

	return out, nil
}
