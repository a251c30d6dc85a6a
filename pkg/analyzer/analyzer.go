// Package analyzer orchestrates vision analysis requests: it builds image
// payloads, submits a single chat-style request through a VisionClient and
// normalizes the outcome into an AnalysisResult.
//
// Every operation converts all failure modes (missing credential, unreadable
// file, transport error, malformed response) into a failed result; nothing
// escapes the operation boundary as an error or panic.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/visionlab/vision-analyzer/pkg/client"
	"github.com/visionlab/vision-analyzer/pkg/openai"
	"github.com/visionlab/vision-analyzer/pkg/payload"
	"github.com/visionlab/vision-analyzer/pkg/types"
)

const (
	// DefaultModel is the vision model used when none is configured.
	DefaultModel = "gpt-4o"

	// DefaultPrompt is used when an operation receives an empty prompt.
	DefaultPrompt = "What's in this image?"

	// DefaultMultiPrompt is the empty-prompt fallback for multi-image calls.
	DefaultMultiPrompt = "Compare these images"

	// Output ceilings are policy constants, not user-configurable.
	maxTokensSingle = 1000
	maxTokensMulti  = 1500
)

// Config holds the settings for an Analyzer. APIKey is required for every
// operation; it is an explicit value, never read from the environment here.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string

	// Logger receives the structured raw-response dump emitted after
	// single-image calls. Nil disables the dump entirely.
	Logger *zerolog.Logger
}

// Analyzer performs one-shot vision analysis calls. It holds no mutable
// state between calls, so concurrent use from independent goroutines is safe.
type Analyzer struct {
	client client.VisionClient
	cfg    Config
	logger zerolog.Logger
}

// New creates an Analyzer backed by the OpenAI chat-completion API.
func New(cfg Config) *Analyzer {
	return NewWithClient(openai.NewClientWithBaseURL(cfg.APIKey, cfg.BaseURL), cfg)
}

// NewWithClient creates an Analyzer on top of a custom backend. The
// credential gate in Config.APIKey still applies to every operation.
func NewWithClient(c client.VisionClient, cfg Config) *Analyzer {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Analyzer{client: c, cfg: cfg, logger: logger}
}

// AnalyzeURL analyzes a single remote image. An empty detail defaults to
// "auto"; unknown values are passed through to the provider.
func (a *Analyzer) AnalyzeURL(ctx context.Context, imageURL, prompt, detail string) types.AnalysisResult {
	return a.analyzeSingle(ctx, imageURL, prompt, detail)
}

// AnalyzeFile analyzes a single local image file. The file is read in full
// exactly once and transmitted inline as a base64 data URI.
func (a *Analyzer) AnalyzeFile(ctx context.Context, imagePath, prompt, detail string) types.AnalysisResult {
	return a.analyzeSingle(ctx, imagePath, prompt, detail)
}

// AnalyzeImages analyzes several images (URLs or file paths, freely mixed)
// in one request. Per-image detail hints are omitted so the provider picks
// its default, and the output ceiling is higher than for single-image calls.
func (a *Analyzer) AnalyzeImages(ctx context.Context, sources []string, prompt string) types.AnalysisResult {
	if a.cfg.APIKey == "" {
		return failure("API key not set")
	}
	if prompt == "" {
		prompt = DefaultMultiPrompt
	}

	payloads := make([]types.ImagePayload, 0, len(sources))
	for _, source := range sources {
		p, err := payload.Build(source, "")
		if err != nil {
			return failure("%v", err)
		}
		payloads = append(payloads, p)
	}

	return a.analyze(ctx, payloads, prompt, maxTokensMulti, false)
}

// AnalyzePayloads analyzes pre-built payloads in one request, for callers
// that prepared image bytes themselves (e.g. after downscaling). A single
// payload gets the single-image token ceiling and the diagnostic dump,
// several payloads follow the multi-image rules.
func (a *Analyzer) AnalyzePayloads(ctx context.Context, payloads []types.ImagePayload, prompt string) types.AnalysisResult {
	if a.cfg.APIKey == "" {
		return failure("API key not set")
	}
	if len(payloads) == 0 {
		return failure("no image payloads given")
	}
	if len(payloads) == 1 {
		if prompt == "" {
			prompt = DefaultPrompt
		}
		return a.analyze(ctx, payloads, prompt, maxTokensSingle, true)
	}
	if prompt == "" {
		prompt = DefaultMultiPrompt
	}
	return a.analyze(ctx, payloads, prompt, maxTokensMulti, false)
}

// analyzeSingle handles both single-image operations; URL and file sources
// only differ in how the payload builder normalizes them.
func (a *Analyzer) analyzeSingle(ctx context.Context, source, prompt, detail string) types.AnalysisResult {
	if a.cfg.APIKey == "" {
		return failure("API key not set")
	}
	if prompt == "" {
		prompt = DefaultPrompt
	}
	if detail == "" {
		detail = types.DetailAuto
	}

	p, err := payload.Build(source, detail)
	if err != nil {
		return failure("%v", err)
	}

	return a.analyze(ctx, []types.ImagePayload{p}, prompt, maxTokensSingle, true)
}

// analyze performs the one network round trip shared by all operations and
// maps the response into a result record.
func (a *Analyzer) analyze(ctx context.Context, payloads []types.ImagePayload, prompt string, maxTokens int, dump bool) types.AnalysisResult {
	resp, err := a.client.Complete(ctx, client.Request{
		Model:     a.cfg.Model,
		Prompt:    prompt,
		Images:    payloads,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return failure("%v", err)
	}

	if len(resp.Choices) == 0 {
		return failure("no choices in response")
	}

	if dump {
		a.dumpResponse(resp)
	}

	return types.AnalysisResult{
		Success:          true,
		Analysis:         resp.Choices[0].Message.Content,
		Model:            resp.Model,
		TotalTokens:      resp.Usage.TotalTokens,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
}

// dumpResponse emits the full normalized response as one structured log
// event. Diagnostic only; it never influences the returned result.
func (a *Analyzer) dumpResponse(resp *client.Response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	a.logger.Debug().RawJSON("response", raw).Msg("raw api response")
}

func failure(format string, args ...any) types.AnalysisResult {
	return types.AnalysisResult{
		Success: false,
		Error:   fmt.Sprintf(format, args...),
	}
}
