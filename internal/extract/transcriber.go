// Package extract turns captured artifacts into plain text for the
// biography pipeline. Scanned PDF documents are read directly; other
// artifact kinds fall back to capture-time metadata with a reduced
// confidence score.
package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/wardlight/intake/internal/agent"
	"github.com/wardlight/intake/internal/schema"
)

const (
	methodOCR = "ocr"
	methodASR = "asr"

	// metadataConfidence applies when text comes from capture-time
	// metadata instead of the artifact payload itself.
	metadataConfidence = 0.5

	// pdfConfidence applies to text read straight out of a PDF payload.
	pdfConfidence = 0.9
)

// Service implements agent.Transcriber for image, audio, and document
// artifacts.
type Service struct{}

// NewService builds an artifact transcriber.
func NewService() *Service {
	return &Service{}
}

// Transcribe extracts text from the artifact. Document artifacts whose
// URI embeds a PDF payload are parsed page by page; image and audio
// artifacts fall back to their description and capture metadata. Text
// and other kinds are rejected with agent.ErrUnsupportedArtifact.
func (s *Service) Transcribe(ctx context.Context, artifact schema.ArtifactRef) (agent.Transcription, error) {
	if err := ctx.Err(); err != nil {
		return agent.Transcription{}, err
	}

	switch artifact.Kind {
	case schema.ArtifactDocument:
		return s.transcribeDocument(artifact)
	case schema.ArtifactImage:
		return metadataTranscription(artifact, methodOCR), nil
	case schema.ArtifactAudio:
		return metadataTranscription(artifact, methodASR), nil
	default:
		return agent.Transcription{}, fmt.Errorf("extract: artifact %s kind %q: %w", artifact.ID, artifact.Kind, agent.ErrUnsupportedArtifact)
	}
}

func (s *Service) transcribeDocument(artifact schema.ArtifactRef) (agent.Transcription, error) {
	payload, ok := decodePDFDataURI(artifact.URI)
	if !ok {
		return metadataTranscription(artifact, methodOCR), nil
	}
	text, err := extractPDFText(payload)
	if err != nil {
		return agent.Transcription{}, fmt.Errorf("extract: artifact %s: %w", artifact.ID, err)
	}
	return agent.Transcription{
		ArtifactID: artifact.ID,
		Text:       text,
		Confidence: pdfConfidence,
		Method:     methodOCR,
	}, nil
}

// decodePDFDataURI unpacks data:application/pdf;base64,... URIs. Any
// other URI shape returns ok=false and the caller falls back to
// metadata.
func decodePDFDataURI(uri string) ([]byte, bool) {
	const prefix = "data:application/pdf;base64,"
	if !strings.HasPrefix(uri, prefix) {
		return nil, false
	}
	payload, err := base64.StdEncoding.DecodeString(uri[len(prefix):])
	if err != nil {
		return nil, false
	}
	return payload, true
}

func extractPDFText(data []byte) (string, error) {
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}
	var builder strings.Builder
	total := doc.NumPage()
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// metadataTranscription assembles text from whatever the capture step
// recorded about the artifact. Confidence comes from the artifact's QA
// block when present.
func metadataTranscription(artifact schema.ArtifactRef, method string) agent.Transcription {
	parts := make([]string, 0, 2)
	if artifact.Description != "" {
		parts = append(parts, artifact.Description)
	}
	if note, ok := artifact.Metadata["transcript"]; ok && note != "" {
		parts = append(parts, note)
	}
	confidence := metadataConfidence
	if artifact.QA != nil && artifact.QA.Confidence != nil {
		confidence = *artifact.QA.Confidence
	}
	return agent.Transcription{
		ArtifactID: artifact.ID,
		Text:       strings.Join(parts, "\n"),
		Confidence: confidence,
		Method:     method,
	}
}
