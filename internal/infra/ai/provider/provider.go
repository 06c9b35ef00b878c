package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/bryanwahyu/budget-review/internal/config"
	domai "github.com/bryanwahyu/budget-review/internal/domain/ai"
	"github.com/bryanwahyu/budget-review/internal/infra/ai/gemini"
	"github.com/bryanwahyu/budget-review/internal/infra/ai/openai"
)

// New builds the configured narrative client. A missing API key yields a nil
// client, which the review requester treats as "not configured".
func New(ctx context.Context, cfg *config.Config) (domai.Client, error) {
	key := strings.TrimSpace(cfg.AI.APIKey)
	if key == "" {
		return nil, nil
	}
	switch cfg.AI.Provider {
	case config.ProviderOpenAI:
		return openai.NewClient(key, cfg.AI.Model, cfg.AI.BaseURL, cfg.AI.Temperature), nil
	case config.ProviderGemini:
		c, err := gemini.NewClient(ctx, key, cfg.AI.Model, cfg.AI.BaseURL, cfg.AI.Temperature)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}
