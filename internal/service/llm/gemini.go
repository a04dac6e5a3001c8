package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"wisetrade/pkg/logger"
)

// GeminiClient invokes Google Gemini models. Credentials come from the
// environment (GEMINI_API_KEY), as the genai SDK expects.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
	log         *logger.Logger
}

// NewGeminiClient creates a Gemini-backed LLM.
func NewGeminiClient(ctx context.Context, model string, temperature float64, timeout time.Duration, log *logger.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GeminiClient{
		client:      client,
		model:       model,
		temperature: float32(temperature),
		timeout:     timeout,
		log:         log,
	}, nil
}

func (c *GeminiClient) Name() string { return "gemini:" + c.model }

// Invoke sends prompt and returns the raw completion text.
func (c *GeminiClient) Invoke(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	c.log.Debug("gemini completion",
		logger.String("model", c.model),
		logger.Duration("took", time.Since(start)),
		logger.Int("chars", len(text)),
	)
	if text == "" {
		return "", fmt.Errorf("gemini: empty completion")
	}
	return text, nil
}
