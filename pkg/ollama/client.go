// Package ollama implements the VisionClient interface against a local
// Ollama server. Inline payloads are decoded back to raw bytes; remote URL
// payloads are downloaded first, since the Ollama chat API only accepts
// image bytes.
package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/visionlab/vision-analyzer/pkg/client"
	"github.com/visionlab/vision-analyzer/pkg/types"
)

// Client wraps the Ollama API client.
type Client struct {
	client     *api.Client
	httpClient *http.Client
}

// NewClient creates a new Ollama client from a server URL such as
// http://localhost:11434. Any path component is dropped.
func NewClient(ollamaURL string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{
		client:     api.NewClient(baseURL, http.DefaultClient),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Complete sends one non-streaming chat request carrying the prompt and the
// decoded image bytes, and maps the Ollama reply and eval metrics into the
// normalized response shape.
func (c *Client) Complete(ctx context.Context, req client.Request) (*client.Response, error) {
	images := make([]api.ImageData, 0, len(req.Images))
	for _, img := range req.Images {
		data, err := c.imageBytes(ctx, img)
		if err != nil {
			return nil, err
		}
		images = append(images, api.ImageData(data))
	}

	streamFalse := false
	chatReq := &api.ChatRequest{
		Model: req.Model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: req.Prompt,
				Images:  images,
			},
		},
		Stream: &streamFalse,
	}
	if req.MaxTokens > 0 {
		chatReq.Options = map[string]any{"num_predict": req.MaxTokens}
	}

	var last api.ChatResponse
	err := c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		last = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %v", err)
	}

	return &client.Response{
		Model:   last.Model,
		Created: last.CreatedAt.Unix(),
		Choices: []client.Choice{
			{
				Index: 0,
				Message: client.Message{
					Role:    last.Message.Role,
					Content: last.Message.Content,
				},
				FinishReason: last.DoneReason,
			},
		},
		Usage: client.Usage{
			PromptTokens:     last.Metrics.PromptEvalCount,
			CompletionTokens: last.Metrics.EvalCount,
			TotalTokens:      last.Metrics.PromptEvalCount + last.Metrics.EvalCount,
		},
	}, nil
}

// imageBytes recovers raw image bytes from a payload, downloading remote
// references.
func (c *Client) imageBytes(ctx context.Context, img types.ImagePayload) ([]byte, error) {
	if img.Kind == types.PayloadInline {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 image: %v", err)
		}
		return data, nil
	}
	return c.download(ctx, img.URL)
}

// download fetches image bytes from an http(s) URL.
func (c *Client) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", "Vision-Analyzer/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	return io.ReadAll(resp.Body)
}
