// Package visionanalyzer provides image analysis through remote multimodal
// chat-completion APIs.
//
// This package sends images (by URL, local file path, or several at once)
// to a vision-capable model together with a text prompt and returns a
// normalized analysis record including token usage.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"os"
//
//		visionanalyzer "github.com/visionlab/vision-analyzer"
//	)
//
//	func main() {
//		va := visionanalyzer.New(os.Getenv("OPENAI_API_KEY"))
//
//		result := va.AnalyzeFile(context.Background(), "photo.jpg",
//			"What's in this image?", visionanalyzer.DetailHigh)
//		if !result.Success {
//			fmt.Println("analysis failed:", result.Error)
//			return
//		}
//
//		fmt.Println(result.Analysis)
//		fmt.Printf("tokens used: %d\n", result.TotalTokens)
//	}
//
// The package consists of three main components:
//
// 1. Payload builder (pkg/payload): normalizes image sources into URL
// references or inline base64 data URIs with inferred media types
//
// 2. Backends (pkg/openai, pkg/ollama): submit one chat-style request with
// a text block and one or more image blocks to the remote service
//
// 3. Analyzer (pkg/analyzer): assembles requests, applies the credential
// gate and token ceilings, and converts every failure mode into a result
// record so callers only ever branch on a success flag.
//
// Calls are one-shot and stateless: no retries, no caching, no shared
// mutable state, so independent concurrent calls are safe by construction.
package visionanalyzer

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/visionlab/vision-analyzer/pkg/analyzer"
	"github.com/visionlab/vision-analyzer/pkg/client"
	"github.com/visionlab/vision-analyzer/pkg/types"
)

// Version of the vision analyzer library
const Version = "1.0.0"

// Detail hints re-exported for callers of the facade.
const (
	DetailLow  = types.DetailLow
	DetailHigh = types.DetailHigh
	DetailAuto = types.DetailAuto
)

// VisionAnalyzer provides a high-level interface for image analysis
type VisionAnalyzer struct {
	analyzer *analyzer.Analyzer
}

// Config mirrors the analyzer configuration for facade users.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  *zerolog.Logger
}

// New creates a VisionAnalyzer talking to the OpenAI API with defaults.
func New(apiKey string) *VisionAnalyzer {
	return NewWithConfig(Config{APIKey: apiKey})
}

// NewWithConfig creates a VisionAnalyzer with custom configuration
func NewWithConfig(cfg Config) *VisionAnalyzer {
	return &VisionAnalyzer{
		analyzer: analyzer.New(analyzer.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Logger:  cfg.Logger,
		}),
	}
}

// NewWithClient creates a VisionAnalyzer over a custom backend, e.g. a
// local Ollama server.
func NewWithClient(c client.VisionClient, cfg Config) *VisionAnalyzer {
	return &VisionAnalyzer{
		analyzer: analyzer.NewWithClient(c, analyzer.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Logger:  cfg.Logger,
		}),
	}
}

// AnalyzeURL analyzes a single image referenced by URL.
func (va *VisionAnalyzer) AnalyzeURL(ctx context.Context, imageURL, prompt, detail string) types.AnalysisResult {
	return va.analyzer.AnalyzeURL(ctx, imageURL, prompt, detail)
}

// AnalyzeFile analyzes a single local image file.
func (va *VisionAnalyzer) AnalyzeFile(ctx context.Context, imagePath, prompt, detail string) types.AnalysisResult {
	return va.analyzer.AnalyzeFile(ctx, imagePath, prompt, detail)
}

// AnalyzeImages analyzes multiple images (URLs and file paths may be mixed)
// in a single request.
func (va *VisionAnalyzer) AnalyzeImages(ctx context.Context, sources []string, prompt string) types.AnalysisResult {
	return va.analyzer.AnalyzeImages(ctx, sources, prompt)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
