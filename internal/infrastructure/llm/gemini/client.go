// Package gemini implements the structured-output inference client.
// Every call constrains the model with a response schema; the caller
// validates the returned object against the same schema, so malformed
// output surfaces as a hard error rather than being coerced.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avelinsk/finpaper/internal/core/ports"
	"github.com/avelinsk/finpaper/internal/infrastructure/resilience"
)

type Config struct {
	APIKey      string
	BaseURL     string // default https://generativelanguage.googleapis.com
	Model       string // e.g. "gemini-2.0-flash"
	Temperature float64
	Timeout     time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *slog.Logger
}

func New(cfg Config, executor *resilience.Executor, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		executor:   executor,
		logger:     logger,
	}
}

// ModelID identifies the model for per-document audit records.
func (c *Client) ModelID() string {
	return c.cfg.Model
}

func (c *Client) GenerateStructured(
	ctx context.Context,
	systemPrompt, instruction string,
	content *ports.DocumentContent,
	outputSchema map[string]any,
) (json.RawMessage, error) {
	parts := []map[string]any{{"text": instruction}}
	if content != nil {
		parts = append(parts, documentPart(*content))
	}

	body := map[string]any{
		"systemInstruction": map[string]any{
			"parts": []map[string]any{{"text": systemPrompt}},
		},
		"contents": []map[string]any{
			{"role": "user", "parts": parts},
		},
		"generationConfig": map[string]any{
			"temperature":      c.cfg.Temperature,
			"responseMimeType": "application/json",
			"responseSchema":   responseSchema(outputSchema),
		},
	}

	path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.cfg.Model)

	var response struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
	}

	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, body, &response, "generate")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "gemini.generate", call, classifyGeminiError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("gemini generate", err)
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini generate: empty candidate response")
	}
	text := strings.TrimSpace(response.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return nil, fmt.Errorf("gemini generate: empty structured output")
	}
	return json.RawMessage(text), nil
}

// documentPart embeds stored content by reference; images and PDFs use
// the same file part, tagged by MIME type.
func documentPart(content ports.DocumentContent) map[string]any {
	return map[string]any{
		"fileData": map[string]any{
			"fileUri":  content.URL,
			"mimeType": content.MIMEType,
		},
	}
}

// responseSchema reduces a registry schema to the OpenAPI subset the
// generateContent API accepts. Keywords the API rejects (defaults,
// additionalProperties, string length/pattern constraints) are local
// validation concerns and are stripped here; the registry re-checks
// the full schema on the way back.
func responseSchema(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for key, value := range schema {
		switch key {
		case "type", "description", "enum", "minimum", "maximum":
			out[key] = value
		case "properties":
			props, ok := value.(map[string]any)
			if !ok {
				continue
			}
			cleaned := make(map[string]any, len(props))
			for name, sub := range props {
				subMap, ok := sub.(map[string]any)
				if !ok {
					continue
				}
				cleaned[name] = responseSchema(subMap)
			}
			out[key] = cleaned
		case "items":
			if subMap, ok := value.(map[string]any); ok {
				out[key] = responseSchema(subMap)
			}
		case "required":
			out[key] = value
		}
	}
	return out
}
