package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"FeedbackInsights/internal/config"
	"FeedbackInsights/internal/ports"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements ports.ModelClient with Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

var _ ports.ModelClient = (*GeminiClient)(nil)

// GeminiOption tweaks client construction.
type GeminiOption func(*genai.ClientConfig)

// WithGeminiEndpoint points the client at another base URL and HTTP client.
func WithGeminiEndpoint(baseURL string, httpClient *http.Client) GeminiOption {
	return func(cc *genai.ClientConfig) {
		cc.HTTPOptions.BaseURL = baseURL
		cc.HTTPClient = httpClient
	}
}

// NewGeminiClient creates a Gemini client; the API key is required.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig, timeout time.Duration, opts ...GeminiOption) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model, timeout: timeout}, nil
}

// Generate requests a JSON answer for the prompt.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}

// Model returns the configured model name.
func (g *GeminiClient) Model() string {
	return g.model
}
