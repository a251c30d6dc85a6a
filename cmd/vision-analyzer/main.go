package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/visionlab/vision-analyzer/internal/config"
	"github.com/visionlab/vision-analyzer/internal/utils"
	"github.com/visionlab/vision-analyzer/pkg/analyzer"
	"github.com/visionlab/vision-analyzer/pkg/client"
	"github.com/visionlab/vision-analyzer/pkg/ollama"
	"github.com/visionlab/vision-analyzer/pkg/openai"
	"github.com/visionlab/vision-analyzer/pkg/payload"
	"github.com/visionlab/vision-analyzer/pkg/processing"
	"github.com/visionlab/vision-analyzer/pkg/types"
)

func main() {
	var in, prompt, detail, backend, baseURL, model, outDir, cfgPath string
	var sendFmt string
	var sendSize, sendQ int
	var debug bool

	flag.StringVar(&in, "in", "", "image source: URL or file path; comma-separate for a multi-image request")
	flag.StringVar(&prompt, "prompt", "", "question or instruction about the image(s)")
	flag.StringVar(&detail, "detail", "", "detail hint: low|high|auto (single-image requests only)")
	flag.StringVar(&backend, "backend", "", "backend to use: openai or ollama")
	flag.StringVar(&baseURL, "url", "", "server URL (defaults: openai=api.openai.com, ollama=http://localhost:11434)")
	flag.StringVar(&model, "model", "", "model name")
	flag.StringVar(&outDir, "out", "", "output directory for the result JSON")
	flag.StringVar(&cfgPath, "config", "", "config file path (JSON)")

	flag.StringVar(&sendFmt, "sendfmt", "", "re-encode local images before sending: jpg|png")
	flag.IntVar(&sendSize, "sendsize", 0, "max long side sent to the model (px), 0=original bytes")
	flag.IntVar(&sendQ, "sendq", 0, "JPEG quality for re-encoded images (1-100)")

	flag.BoolVar(&debug, "debug", false, "log the raw API response")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	if in == "" {
		logger.Fatal().Msgf("usage: %s -in input.jpg|URL[,more...] [-prompt text] [-detail low|high|auto] [-backend openai|ollama]", filepath.Base(os.Args[0]))
	}

	// .env is optional; real environment variables take precedence anyway.
	_ = godotenv.Load()

	cfg := loadConfig(&logger, cfgPath)
	applyFlagOverrides(cfg, backend, baseURL, model, detail, sendFmt, sendSize, sendQ, outDir)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" && cfg.Client.Backend == "ollama" {
		// Local servers ignore the key but the analyzer contract requires one.
		apiKey = "ollama"
	}

	va := newAnalyzer(&logger, cfg, apiKey)

	sources := splitSources(in)
	ctx := context.Background()

	var result types.AnalysisResult
	switch {
	case cfg.Send.MaxSize > 0:
		result = analyzePrepared(ctx, &logger, va, cfg, sources, prompt)
	case len(sources) == 1:
		result = analyzeOne(ctx, va, cfg, sources[0], prompt)
	default:
		logger.Info().Int("images", len(sources)).Msg("analyzing multiple images")
		result = va.AnalyzeImages(ctx, sources, prompt)
	}

	if !result.Success {
		logger.Fatal().Str("error", result.Error).Msg("analysis failed")
	}

	fmt.Println(result.Analysis)
	logger.Info().
		Str("model", result.Model).
		Int("prompt_tokens", result.PromptTokens).
		Int("completion_tokens", result.CompletionTokens).
		Int("total_tokens", result.TotalTokens).
		Msg("analysis complete")

	if cfg.Output.SaveRaw && cfg.Output.Dir != "" {
		saveResult(&logger, cfg.Output.Dir, result)
	}
}

// loadConfig reads the config file when given, falling back to defaults.
func loadConfig(logger *zerolog.Logger, path string) *config.Config {
	if path == "" {
		if def := config.GetConfigPath(); utils.FileExists(def) {
			path = def
		}
	}
	if path == "" {
		return config.Default()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("failed to load config")
	}
	return cfg
}

func applyFlagOverrides(cfg *config.Config, backend, baseURL, model, detail, sendFmt string, sendSize, sendQ int, outDir string) {
	if backend != "" {
		cfg.Client.Backend = backend
	}
	if baseURL != "" {
		cfg.Client.BaseURL = baseURL
	}
	if model != "" {
		cfg.Client.Model = model
	}
	if detail != "" {
		cfg.Client.Detail = detail
	}
	if sendFmt != "" {
		cfg.Send.Format = sendFmt
	}
	if sendSize > 0 {
		cfg.Send.MaxSize = sendSize
	}
	if sendQ > 0 {
		cfg.Send.Quality = sendQ
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
}

func newAnalyzer(logger *zerolog.Logger, cfg *config.Config, apiKey string) *analyzer.Analyzer {
	acfg := analyzer.Config{
		APIKey:  apiKey,
		Model:   cfg.Client.Model,
		BaseURL: cfg.Client.BaseURL,
		Logger:  logger,
	}

	var backend client.VisionClient
	switch cfg.Client.Backend {
	case "ollama":
		url := cfg.Client.BaseURL
		if url == "" {
			url = "http://localhost:11434"
		}
		oc, err := ollama.NewClient(url)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create Ollama client")
		}
		backend = oc
	default:
		backend = openai.NewClientWithBaseURL(apiKey, cfg.Client.BaseURL)
	}

	return analyzer.NewWithClient(backend, acfg)
}

func analyzeOne(ctx context.Context, va *analyzer.Analyzer, cfg *config.Config, source, prompt string) types.AnalysisResult {
	if payload.IsRemote(source) {
		return va.AnalyzeURL(ctx, source, prompt, cfg.Client.Detail)
	}
	return va.AnalyzeFile(ctx, source, prompt, cfg.Client.Detail)
}

// analyzePrepared downscales local images before sending them, keeping URLs
// as direct references.
func analyzePrepared(ctx context.Context, logger *zerolog.Logger, va *analyzer.Analyzer, cfg *config.Config, sources []string, prompt string) types.AnalysisResult {
	processor := processing.NewProcessor()
	single := len(sources) == 1

	payloads := make([]types.ImagePayload, 0, len(sources))
	for _, source := range sources {
		detail := ""
		if single {
			detail = cfg.Client.Detail
		}

		if payload.IsRemote(source) {
			p, _ := payload.Build(source, detail)
			payloads = append(payloads, p)
			continue
		}

		img, err := processor.LoadImage(source)
		if err != nil {
			logger.Fatal().Err(err).Str("path", source).Msg("failed to load image")
		}
		data, mediaType, err := processor.PrepareForModel(img, cfg.Send.Format, cfg.Send.MaxSize, cfg.Send.Quality)
		if err != nil {
			logger.Fatal().Err(err).Str("path", source).Msg("failed to prepare image")
		}
		logger.Debug().Str("path", source).Str("size", utils.FormatFileSize(int64(len(data)))).Msg("prepared image")
		payloads = append(payloads, payload.FromBytes(data, mediaType, detail))
	}

	return va.AnalyzePayloads(ctx, payloads, prompt)
}

func saveResult(logger *zerolog.Logger, dir string, result types.AnalysisResult) {
	if err := utils.EnsureDir(dir); err != nil {
		logger.Error().Err(err).Msg("failed to create output directory")
		return
	}
	js, _ := json.MarshalIndent(result, "", "  ")
	path := filepath.Join(dir, "analysis.json")
	if err := os.WriteFile(path, js, 0o644); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("failed to write result")
		return
	}
	logger.Info().Str("path", path).Msg("wrote result")
}

func splitSources(in string) []string {
	parts := strings.Split(in, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
