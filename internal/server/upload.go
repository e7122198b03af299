package server

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wardlight/intake/internal/schema"
)

const maxUploadBytes = 50 << 20

var allowedUploadTypes = map[string]schema.ArtifactKind{
	"image/jpeg":      schema.ArtifactImage,
	"image/png":       schema.ArtifactImage,
	"image/gif":       schema.ArtifactImage,
	"audio/mpeg":      schema.ArtifactAudio,
	"audio/wav":       schema.ArtifactAudio,
	"audio/m4a":       schema.ArtifactAudio,
	"audio/mp4":       schema.ArtifactAudio,
	"application/pdf": schema.ArtifactDocument,
}

// handleUpload accepts one multipart file and returns its artifact
// reference. With an artifact store configured the payload lands in
// object storage; otherwise the reference carries the payload inline as
// a data URI so later steps can still process it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	rc, err := extractRequestContext(r)
	if err != nil {
		s.handleError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file upload"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	kind, ok := allowedUploadTypes[contentType]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unsupported file type: %s", contentType)})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.handleError(w, err)
		return
	}

	var artifact schema.ArtifactRef
	if s.artifacts != nil {
		artifact, err = s.artifacts.Upload(r.Context(), rc.CaseID, kind, bytes.NewReader(data), int64(len(data)), contentType)
		if err != nil {
			s.handleError(w, err)
			return
		}
	} else {
		captured := time.Now().UTC()
		artifact = schema.ArtifactRef{
			ID:         uuid.NewString(),
			Kind:       kind,
			URI:        fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)),
			CapturedAt: &captured,
			Metadata:   map[string]string{"contentType": contentType},
		}
	}
	artifact.CapturedBy = rc.ClinicianID
	if description := strings.TrimSpace(r.FormValue("description")); description != "" {
		artifact.Description = description
	} else {
		artifact.Description = fmt.Sprintf("Uploaded %s", header.Filename)
	}
	if artifact.Metadata == nil {
		artifact.Metadata = map[string]string{}
	}
	artifact.Metadata["originalFilename"] = header.Filename

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"artifact": artifact,
	})
}
