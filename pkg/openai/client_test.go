package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/visionlab/vision-analyzer/pkg/client"
	"github.com/visionlab/vision-analyzer/pkg/types"
)

const fixedResponse = `{
	"id": "chatcmpl-123",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o",
	"choices": [
		{
			"index": 0,
			"message": {"role": "assistant", "content": "A wooden boardwalk through a marsh."},
			"finish_reason": "stop"
		}
	],
	"usage": {"prompt_tokens": 120, "completion_tokens": 25, "total_tokens": 145}
}`

// wireRequest mirrors the provider request shape for assertions.
type wireRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content []struct {
			Type     string `json:"type"`
			Text     string `json:"text"`
			ImageURL *struct {
				URL    string `json:"url"`
				Detail string `json:"detail"`
			} `json:"image_url"`
		} `json:"content"`
	} `json:"messages"`
}

// newTestServer captures the raw request body and replies with fixedResponse.
func newTestServer(t *testing.T, body *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read request body: %v", err)
		}
		*body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, fixedResponse)
	}))
}

func TestCompleteSingleImage(t *testing.T) {
	var body string
	server := newTestServer(t, &body)
	defer server.Close()

	c := NewClientWithBaseURL("test-key", server.URL+"/v1")
	resp, err := c.Complete(context.Background(), client.Request{
		Model:  "gpt-4o",
		Prompt: "Describe",
		Images: []types.ImagePayload{
			{Kind: types.PayloadURL, URL: "http://x/img.jpg", Detail: types.DetailHigh},
		},
		MaxTokens: 1000,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	var req wireRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}

	if req.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", req.Model)
	}
	if req.MaxTokens != 1000 {
		t.Errorf("expected max_tokens 1000, got %d", req.MaxTokens)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("expected one user message, got %+v", req.Messages)
	}

	content := req.Messages[0].Content
	if len(content) != 2 {
		t.Fatalf("expected 2 content parts, got %d", len(content))
	}
	if content[0].Type != "text" || content[0].Text != "Describe" {
		t.Errorf("first part should be the text prompt, got %+v", content[0])
	}
	if content[1].Type != "image_url" || content[1].ImageURL == nil {
		t.Fatalf("second part should be an image_url, got %+v", content[1])
	}
	if content[1].ImageURL.URL != "http://x/img.jpg" {
		t.Errorf("image URL should pass through, got %q", content[1].ImageURL.URL)
	}
	if content[1].ImageURL.Detail != "high" {
		t.Errorf("expected detail high, got %q", content[1].ImageURL.Detail)
	}

	// Normalized response mapping.
	if resp.ID != "chatcmpl-123" {
		t.Errorf("expected id chatcmpl-123, got %q", resp.ID)
	}
	if resp.Model != "gpt-4o" || resp.Created != 1700000000 {
		t.Errorf("response header mismatch: %+v", resp)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("expected 1 choice, got %d", len(resp.Choices))
	}
	choice := resp.Choices[0]
	if choice.Message.Role != "assistant" ||
		choice.Message.Content != "A wooden boardwalk through a marsh." ||
		choice.FinishReason != "stop" {
		t.Errorf("choice mismatch: %+v", choice)
	}
	if resp.Usage.PromptTokens != 120 || resp.Usage.CompletionTokens != 25 || resp.Usage.TotalTokens != 145 {
		t.Errorf("usage mismatch: %+v", resp.Usage)
	}
}

func TestCompleteMultiImage(t *testing.T) {
	var body string
	server := newTestServer(t, &body)
	defer server.Close()

	c := NewClientWithBaseURL("test-key", server.URL+"/v1")
	_, err := c.Complete(context.Background(), client.Request{
		Model:  "gpt-4o",
		Prompt: "Compare",
		Images: []types.ImagePayload{
			{Kind: types.PayloadInline, MediaType: "image/png", Data: "aGVsbG8="},
			{Kind: types.PayloadURL, URL: "http://x/b.jpg"},
		},
		MaxTokens: 1500,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	var req wireRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}

	content := req.Messages[0].Content
	if len(content) != 3 {
		t.Fatalf("expected 3 content parts (prompt + 2 images), got %d", len(content))
	}
	if content[1].ImageURL.URL != "data:image/png;base64,aGVsbG8=" {
		t.Errorf("inline image should be a data URI, got %q", content[1].ImageURL.URL)
	}
	if content[2].ImageURL.URL != "http://x/b.jpg" {
		t.Errorf("second image should be a direct reference, got %q", content[2].ImageURL.URL)
	}

	// Per-image detail must be absent entirely in multi-image requests.
	if strings.Contains(body, `"detail"`) {
		t.Error("multi-image request should not carry detail fields")
	}
}

func TestCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`)
	}))
	defer server.Close()

	c := NewClientWithBaseURL("bad-key", server.URL+"/v1")
	_, err := c.Complete(context.Background(), client.Request{
		Model:  "gpt-4o",
		Prompt: "Describe",
		Images: []types.ImagePayload{{Kind: types.PayloadURL, URL: "http://x/img.jpg"}},
	})
	if err == nil {
		t.Fatal("expected an error for a 401 response")
	}
	if !strings.Contains(err.Error(), "Incorrect API key") {
		t.Errorf("transport error message should be preserved, got %q", err.Error())
	}
}
