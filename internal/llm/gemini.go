// Package llm provides the text-generation backend used by the
// biography extraction step.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wardlight/intake/internal/agent"
)

const (
	// DefaultModel is the generation model used when none is configured.
	DefaultModel = "models/gemini-1.5-flash-latest"

	// DefaultBaseURL is the Gemini API endpoint prefix.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	defaultTimeout = 30 * time.Second
)

// GeminiClient implements agent.TextGenerator against the Gemini
// generateContent endpoint.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  agent.Logger
}

// GeminiOption customizes client construction.
type GeminiOption func(*GeminiClient)

// WithModel overrides the generation model.
func WithModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		if model != "" {
			g.model = model
		}
	}
}

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(baseURL string) GeminiOption {
	return func(g *GeminiClient) {
		if baseURL != "" {
			g.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(g *GeminiClient) {
		if client != nil {
			g.client = client
		}
	}
}

// WithLogger attaches a logger for request outcomes.
func WithLogger(logger agent.Logger) GeminiOption {
	return func(g *GeminiClient) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGeminiClient builds a client. The API key is required.
func NewGeminiClient(apiKey string, opts ...GeminiOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: gemini api key is required")
	}
	g := &GeminiClient{
		apiKey:  apiKey,
		model:   DefaultModel,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  agent.NopLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64  `json:"temperature"`
	MaxOutputTokens int      `json:"maxOutputTokens"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate issues one generateContent call. The request context governs
// cancellation and deadline.
func (g *GeminiClient) Generate(ctx context.Context, req agent.GenerateRequest) (agent.GenerateResult, error) {
	contents := make([]geminiContent, 0, len(req.Messages)+1)
	for _, msg := range req.Messages {
		contents = append(contents, geminiContent{
			Role:  msg.Role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}
	if input := strings.TrimSpace(req.Input); input != "" {
		contents = append(contents, geminiContent{
			Role:  "user",
			Parts: []geminiPart{{Text: input}},
		})
	}
	if len(contents) == 0 {
		return agent.GenerateResult{}, fmt.Errorf("llm: generate requires at least one message or input text")
	}

	payload := geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: maxTokens(req.MaxOutputTokens),
			StopSequences:   req.StopSequences,
		},
	}
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		payload.SystemInstruction = &geminiContent{
			Role:  "system",
			Parts: []geminiPart{{Text: system}},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return agent.GenerateResult{}, fmt.Errorf("llm: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return agent.GenerateResult{}, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return agent.GenerateResult{}, fmt.Errorf("llm: gemini request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return agent.GenerateResult{}, fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		g.logger.Error("gemini request failed", "status", resp.StatusCode)
		return agent.GenerateResult{}, fmt.Errorf("llm: gemini request failed with status %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return agent.GenerateResult{}, fmt.Errorf("llm: decode response: %w", err)
	}
	text := primaryText(parsed)
	g.logger.Info("gemini response received", "hasText", text != "", "candidates", len(parsed.Candidates))

	return agent.GenerateResult{Text: text, Raw: raw}, nil
}

func maxTokens(requested int) int {
	if requested <= 0 {
		return 1024
	}
	return requested
}

func primaryText(resp geminiResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		builder.WriteString(part.Text)
	}
	return strings.TrimSpace(builder.String())
}
