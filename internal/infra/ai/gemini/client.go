package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	domai "github.com/bryanwahyu/budget-review/internal/domain/ai"
)

const (
	defaultModel       = "gemini-2.0-flash"
	defaultTemperature = 0.25
)

// Client is the Gemini alternative to the OpenAI chat client.
type Client struct {
	client      *genai.Client
	Model       string
	Temperature float32
}

func NewClient(ctx context.Context, apiKey, model, baseURL string, temperature float32) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	return &Client{client: cli, Model: model, Temperature: temperature}, nil
}

// Complete runs one generateContent call in JSON mode.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.Temperature),
		ResponseMIMEType: "application/json",
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.Model, genai.Text(user), config)
	if err != nil {
		if isQuotaError(err) {
			return "", fmt.Errorf("%w: %v", domai.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", domai.ErrEmptyCompletion
	}
	return text, nil
}

func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
