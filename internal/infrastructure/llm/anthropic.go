// Package llm streams completions from the Anthropic Messages API.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/internal/service"
)

type Config struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
}

// Generator implements service.Generator.
type Generator struct {
	client anthropic.Client
	hasKey bool
	logger *slog.Logger
}

var _ service.Generator = (*Generator)(nil)

func NewGenerator(cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []option.RequestOption{option.WithMaxRetries(cfg.MaxRetries)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Generator{
		client: anthropic.NewClient(opts...),
		hasKey: cfg.APIKey != "",
		logger: logger,
	}
}

// Stream sends req.Prompt as a single user message and forwards every text
// delta to onDelta.
func (g *Generator) Stream(ctx context.Context, req service.GenerateRequest, onDelta func(string)) (string, error) {
	var reqOpts []option.RequestOption
	if req.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(req.APIKey))
	} else if !g.hasKey {
		return "", fmt.Errorf("%w: no api key", domain.ErrGeneratorNotReady)
	}

	stream := g.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}, reqOpts...)
	defer stream.Close()

	var b strings.Builder
	for stream.Next() {
		ev, ok := stream.Current().AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if d, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && d.Text != "" {
			b.WriteString(d.Text)
			onDelta(d.Text)
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("anthropic stream: %w", err)
	}

	g.logger.Debug("completion finished", slog.String("model", req.Model), slog.Int("chars", b.Len()))
	return b.String(), nil
}
