// Package ai adapts an Ark-hosted chat model to the analyzer the SEO tools
// consume. When no model is configured the fallback analyzer keeps the
// server functional by echoing structured evidence back as the report.
package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

// Config carries the Ark model credentials.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Enabled reports whether the config can build a model.
func (c Config) Enabled() bool {
	return c.Model != "" && c.APIKey != ""
}

// Analyzer produces narrative SEO reports from gathered evidence.
type Analyzer struct {
	chatModel model.ChatModel
}

// New builds an analyzer backed by an Ark chat model.
func New(ctx context.Context, config Config) (*Analyzer, error) {
	if !config.Enabled() {
		return nil, fmt.Errorf("ai: ARK_API_KEY and ARK_MODEL are required")
	}
	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL: config.BaseURL,
		APIKey:  config.APIKey,
		Model:   config.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: create chat model: %w", err)
	}
	return &Analyzer{chatModel: chatModel}, nil
}

// Analyze runs the instruction over the evidence and returns the report.
func (a *Analyzer) Analyze(ctx context.Context, instruction, evidence string, maxTokens int) (string, error) {
	messages := []*einoschema.Message{
		{Role: einoschema.System, Content: instruction},
		{Role: einoschema.User, Content: evidence},
	}
	response, err := a.chatModel.Generate(ctx, messages, model.WithMaxTokens(maxTokens))
	if err != nil {
		return "", fmt.Errorf("ai: generate: %w", err)
	}
	return response.Content, nil
}

// Fallback is the analyzer used when no model is configured. It returns the
// evidence under a banner so callers still get the gathered data.
type Fallback struct{}

func (Fallback) Analyze(_ context.Context, _ string, evidence string, _ int) (string, error) {
	return "AI analysis is not configured on this server. Raw analysis data follows.\n\n" + evidence, nil
}
