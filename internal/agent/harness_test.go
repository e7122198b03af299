package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/wardlight/intake/internal/schema"
)

var testClock = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testClock }

// stubGenerator returns a canned model response.
type stubGenerator struct {
	text string
	err  error

	calls []GenerateRequest
}

func (g *stubGenerator) Generate(_ context.Context, req GenerateRequest) (GenerateResult, error) {
	g.calls = append(g.calls, req)
	if g.err != nil {
		return GenerateResult{}, g.err
	}
	return GenerateResult{Text: g.text}, nil
}

// stubTranscriber returns a canned transcription.
type stubTranscriber struct {
	out Transcription
	err error
}

func (t *stubTranscriber) Transcribe(_ context.Context, artifact schema.ArtifactRef) (Transcription, error) {
	if t.err != nil {
		return Transcription{}, t.err
	}
	out := t.out
	if out.ArtifactID == "" {
		out.ArtifactID = artifact.ID
	}
	return out, nil
}

// stubCrypto produces reversible fake envelopes.
type stubCrypto struct{}

func (stubCrypto) Encrypt(plaintext string) (schema.EncryptedField, error) {
	return schema.EncryptedField{
		Ciphertext: "enc:" + plaintext,
		IV:         "iv",
		AuthTag:    "tag",
		KeyVersion: 1,
	}, nil
}

func (stubCrypto) Decrypt(payload schema.EncryptedField) (string, error) {
	if len(payload.Ciphertext) < 4 || payload.Ciphertext[:4] != "enc:" {
		return "", fmt.Errorf("stub crypto: malformed payload")
	}
	return payload.Ciphertext[4:], nil
}

// draftRecorder captures every autosaved draft.
type draftRecorder struct {
	drafts []schema.CaseRecord
	err    error
}

func (r *draftRecorder) save(_ context.Context, draft schema.CaseRecord) error {
	if r.err != nil {
		return r.err
	}
	r.drafts = append(r.drafts, draft)
	return nil
}

func newTestDeps() Deps {
	return Deps{Clock: fixedClock}.Normalized()
}

func newTestRunContext(t *testing.T) (RunContext, *draftRecorder) {
	t.Helper()
	recorder := &draftRecorder{}
	record := schema.NewCaseRecord(testClock)
	return RunContext{
		Record:   record,
		Autosave: recorder.save,
		Logger:   NopLogger{},
	}, recorder
}

func floatPtr(v float64) *float64 { return &v }
