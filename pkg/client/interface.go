// Package client defines the backend-neutral request/response types shared
// by the vision backends and the interface the analyzer depends on.
package client

import (
	"context"

	"github.com/visionlab/vision-analyzer/pkg/types"
)

// Request describes one chat-style analysis call: a text prompt followed by
// one or more image payloads, addressed to a model with an output ceiling.
type Request struct {
	Model     string
	Prompt    string
	Images    []types.ImagePayload
	MaxTokens int
}

// Message is the role/content pair inside a response choice.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Choice is a single completion alternative returned by the provider.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage holds the provider's token accounting for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the normalized provider response. Backends map their native
// wire format into this shape at the boundary.
type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Created int64    `json:"created"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// VisionClient is implemented by every backend that can complete a
// text+image request against a multimodal model.
type VisionClient interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
