package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/visionlab/vision-analyzer/pkg/client"
	"github.com/visionlab/vision-analyzer/pkg/types"
)

// chatHandler captures the request body and answers with one final chunk.
func chatHandler(t *testing.T, body *[]byte) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read request body: %v", err)
		}
		*body = raw
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"model": "llava", "created_at": "2024-01-01T00:00:00Z", "message": {"role": "assistant", "content": "A cat on a sofa."}, "done": true, "done_reason": "stop", "prompt_eval_count": 30, "eval_count": 12}`)
	}
}

func TestCompleteInlineImage(t *testing.T) {
	var body []byte
	server := httptest.NewServer(chatHandler(t, &body))
	defer server.Close()

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	raw := []byte("fake-image-bytes")
	resp, err := c.Complete(context.Background(), client.Request{
		Model:  "llava",
		Prompt: "Describe",
		Images: []types.ImagePayload{
			{
				Kind:      types.PayloadInline,
				MediaType: "image/png",
				Data:      base64.StdEncoding.EncodeToString(raw),
			},
		},
		MaxTokens: 1000,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	var req struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role    string   `json:"role"`
			Content string   `json:"content"`
			Images  []string `json:"images"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}

	if req.Model != "llava" || req.Stream {
		t.Errorf("request header mismatch: model=%q stream=%v", req.Model, req.Stream)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "Describe" {
		t.Fatalf("expected one user message with the prompt, got %+v", req.Messages)
	}
	if len(req.Messages[0].Images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(req.Messages[0].Images))
	}
	decoded, err := base64.StdEncoding.DecodeString(req.Messages[0].Images[0])
	if err != nil || string(decoded) != string(raw) {
		t.Error("image bytes should round-trip through the request")
	}

	if len(resp.Choices) != 1 {
		t.Fatalf("expected 1 choice, got %d", len(resp.Choices))
	}
	if resp.Choices[0].Message.Content != "A cat on a sofa." {
		t.Errorf("unexpected content: %q", resp.Choices[0].Message.Content)
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Errorf("expected finish reason stop, got %q", resp.Choices[0].FinishReason)
	}
	if resp.Usage.PromptTokens != 30 || resp.Usage.CompletionTokens != 12 || resp.Usage.TotalTokens != 42 {
		t.Errorf("usage mismatch: %+v", resp.Usage)
	}
}

func TestCompleteDownloadsRemoteImages(t *testing.T) {
	raw := []byte("remote-image-bytes")

	var body []byte
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", chatHandler(t, &body))
	mux.HandleFunc("/img.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(raw)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = c.Complete(context.Background(), client.Request{
		Model:  "llava",
		Prompt: "Describe",
		Images: []types.ImagePayload{
			{Kind: types.PayloadURL, URL: server.URL + "/img.png"},
		},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	var req struct {
		Messages []struct {
			Images []string `json:"images"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if len(req.Messages[0].Images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(req.Messages[0].Images))
	}
	decoded, _ := base64.StdEncoding.DecodeString(req.Messages[0].Images[0])
	if string(decoded) != string(raw) {
		t.Error("downloaded bytes should be forwarded to the model")
	}
}

func TestCompleteBadBase64(t *testing.T) {
	c, err := NewClient("http://localhost:11434")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = c.Complete(context.Background(), client.Request{
		Model:  "llava",
		Prompt: "Describe",
		Images: []types.ImagePayload{
			{Kind: types.PayloadInline, MediaType: "image/png", Data: "%%%not-base64%%%"},
		},
	})
	if err == nil {
		t.Fatal("expected an error for invalid base64 data")
	}
}

func TestCompleteRejectsNonImageURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html></html>")
	}))
	defer server.Close()

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = c.Complete(context.Background(), client.Request{
		Model:  "llava",
		Prompt: "Describe",
		Images: []types.ImagePayload{
			{Kind: types.PayloadURL, URL: server.URL + "/page.html"},
		},
	})
	if err == nil {
		t.Fatal("expected an error for a non-image content type")
	}
}
