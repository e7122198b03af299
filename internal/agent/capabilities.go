package agent

import (
	"context"
	"errors"

	"github.com/wardlight/intake/internal/schema"
)

// Logger receives structured progress lines from agents. Key-value pairs
// alternate key, value.
type Logger interface {
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// NopLogger drops everything. Installed by default so agents never
// nil-check their logger.
type NopLogger struct{}

func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// PromptLoader resolves a prompt template path to its text.
type PromptLoader interface {
	Load(path string) (string, error)
}

// NopPromptLoader returns empty prompts, for environments without a
// prompt directory.
type NopPromptLoader struct{}

func (NopPromptLoader) Load(string) (string, error) { return "", nil }

// Message is one turn of a generation conversation.
type Message struct {
	Role    string
	Content string
}

// GenerateRequest parameterizes one text-generation call.
type GenerateRequest struct {
	SystemPrompt    string
	Input           string
	Messages        []Message
	Temperature     float64
	MaxOutputTokens int
	StopSequences   []string
}

// GenerateResult is the model response. Raw preserves the provider payload
// when available.
type GenerateResult struct {
	Text string
	Raw  []byte
}

// TextGenerator is the text-generation capability. Implementations must
// honor context cancellation.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

// ErrUnsupportedArtifact is returned by transcribers handed an artifact
// kind they cannot process. This is a caller error, not a transient
// failure, and propagates out of agent runs.
var ErrUnsupportedArtifact = errors.New("agent: unsupported artifact kind")

// Transcription is the outcome of one OCR/ASR pass over an artifact.
type Transcription struct {
	ArtifactID string  `json:"artifactId"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"processingMethod"`
}

// Transcriber is the OCR/ASR capability: it extracts text from image,
// audio, and document artifacts and reports how it did so.
type Transcriber interface {
	Transcribe(ctx context.Context, artifact schema.ArtifactRef) (Transcription, error)
}

// CryptoProvider moves sensitive values into and out of ciphertext
// envelopes.
type CryptoProvider interface {
	Encrypt(plaintext string) (schema.EncryptedField, error)
	Decrypt(payload schema.EncryptedField) (string, error)
}
