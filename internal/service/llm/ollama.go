package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	xhttp "wisetrade/pkg/http"
	"wisetrade/pkg/logger"
)

// OllamaClient invokes a local Ollama server, the offline alternative to
// hosted models.
type OllamaClient struct {
	client      *xhttp.Client
	baseURL     string
	model       string
	temperature float64
	log         *logger.Logger
}

func NewOllamaClient(baseURL, model string, temperature float64, timeout time.Duration, log *logger.Logger) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &OllamaClient{
		client:      xhttp.NewClient(xhttp.WithTimeout(timeout)),
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		log:         log,
	}
}

func (c *OllamaClient) Name() string { return "ollama:" + c.model }

type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Invoke sends prompt and returns the raw completion text.
func (c *OllamaClient) Invoke(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	var resp ollamaGenerateResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/api/generate",
		Body: ollamaGenerateRequest{
			Model:   c.model,
			Prompt:  prompt,
			Stream:  false,
			Options: map[string]interface{}{"temperature": c.temperature},
		},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	c.log.Debug("ollama completion",
		logger.String("model", c.model),
		logger.Duration("took", time.Since(start)),
		logger.Int("chars", len(resp.Response)),
	)
	if resp.Response == "" {
		return "", fmt.Errorf("ollama: empty completion")
	}
	return resp.Response, nil
}
