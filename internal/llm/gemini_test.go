package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wardlight/intake/internal/agent"
)

func geminiResponseBody(texts ...string) string {
	parts := make([]map[string]string, 0, len(texts))
	for _, text := range texts {
		parts = append(parts, map[string]string{"text": text})
	}
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": parts}},
		},
	})
	return string(body)
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(""); err == nil {
		t.Fatalf("empty api key must be rejected")
	}
}

func TestGenerateBuildsRequestAndParsesResponse(t *testing.T) {
	var captured geminiRequest
	var path, query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		query = r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(geminiResponseBody("  extracted ", "text  ")))
	}))
	defer server.Close()

	client, err := NewGeminiClient("test-key", WithBaseURL(server.URL), WithModel("models/test-model"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.Generate(context.Background(), agent.GenerateRequest{
		SystemPrompt:    "extract fields",
		Input:           "patient is Ada",
		Temperature:     0,
		MaxOutputTokens: 256,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if path != "/models/test-model:generateContent" {
		t.Fatalf("unexpected path %q", path)
	}
	if !strings.Contains(query, "key=test-key") {
		t.Fatalf("api key missing from query: %q", query)
	}
	if captured.SystemInstruction == nil || captured.SystemInstruction.Parts[0].Text != "extract fields" {
		t.Fatalf("system instruction not sent: %+v", captured.SystemInstruction)
	}
	if len(captured.Contents) != 1 || captured.Contents[0].Parts[0].Text != "patient is Ada" {
		t.Fatalf("input not sent: %+v", captured.Contents)
	}
	if captured.GenerationConfig.MaxOutputTokens != 256 {
		t.Fatalf("max tokens not forwarded: %+v", captured.GenerationConfig)
	}
	if result.Text != "extracted text" {
		t.Fatalf("parts should be joined and trimmed, got %q", result.Text)
	}
	if len(result.Raw) == 0 {
		t.Fatalf("raw body should be preserved")
	}
}

func TestGenerateSendsConversationMessages(t *testing.T) {
	var captured geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(geminiResponseBody("ok")))
	}))
	defer server.Close()

	client, err := NewGeminiClient("test-key", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.Generate(context.Background(), agent.GenerateRequest{
		Messages: []agent.Message{
			{Role: "user", Content: "hello"},
			{Role: "model", Content: "hi"},
		},
		Input: "follow up",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(captured.Contents) != 3 {
		t.Fatalf("expected messages plus input, got %+v", captured.Contents)
	}
	if captured.Contents[1].Role != "model" {
		t.Fatalf("roles not preserved: %+v", captured.Contents)
	}
}

func TestGenerateRequiresContent(t *testing.T) {
	client, err := NewGeminiClient("test-key")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Generate(context.Background(), agent.GenerateRequest{Input: "   "}); err == nil {
		t.Fatalf("blank input with no messages must be rejected")
	}
}

func TestGenerateDefaultsMaxTokens(t *testing.T) {
	var captured geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(geminiResponseBody("ok")))
	}))
	defer server.Close()

	client, _ := NewGeminiClient("test-key", WithBaseURL(server.URL))
	if _, err := client.Generate(context.Background(), agent.GenerateRequest{Input: "x"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if captured.GenerationConfig.MaxOutputTokens != 1024 {
		t.Fatalf("expected default token cap, got %d", captured.GenerationConfig.MaxOutputTokens)
	}
}

func TestGenerateNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "quota"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := NewGeminiClient("test-key", WithBaseURL(server.URL))
	_, err := client.Generate(context.Background(), agent.GenerateRequest{Input: "x"})
	if err == nil || !strings.Contains(err.Error(), "status 429") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestGenerateEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	client, _ := NewGeminiClient("test-key", WithBaseURL(server.URL))
	result, err := client.Generate(context.Background(), agent.GenerateRequest{Input: "x"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Text != "" {
		t.Fatalf("no candidates should read as empty text, got %q", result.Text)
	}
}
