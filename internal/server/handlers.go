package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wardlight/intake/internal/agent"
	"github.com/wardlight/intake/internal/cryptoutil"
	"github.com/wardlight/intake/internal/schema"
	"github.com/wardlight/intake/internal/session"
	"github.com/wardlight/intake/internal/state"
)

var errInvalidJSON = errors.New("server: invalid JSON body")

type bioRequest struct {
	Patient   schema.PatientPatch `json:"patient"`
	Consent   schema.ConsentPatch `json:"consent"`
	InputType string              `json:"inputType"`
	Artifact  *schema.ArtifactRef `json:"artifact"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	controller, err := s.open(r)
	if err != nil {
		s.handleError(w, err)
		return
	}
	snapshot, err := controller.GetSnapshot(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// handleBio accepts either direct patches or a multi-modal submission.
// A request naming an artifact routes through the input router; plain
// patches run the biography agent directly.
func (s *Server) handleBio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var body bioRequest
	if err := readJSONBody(r, &body); err != nil {
		s.handleError(w, err)
		return
	}
	controller, err := s.open(r)
	if err != nil {
		s.handleError(w, err)
		return
	}

	if body.Artifact == nil {
		snapshot, err := controller.UpdateBio(r.Context(), body.Patient, body.Consent)
		if err != nil {
			s.handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
		return
	}

	input, err := routerInput(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	output, err := controller.ProcessInput(r.Context(), input)
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, output)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	controller, err := s.open(r)
	if err != nil {
		s.handleError(w, err)
		return
	}
	result, err := controller.ConfirmBio(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}
	status := http.StatusOK
	if !result.OK {
		status = http.StatusConflict
	}
	writeJSON(w, status, result)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	event, ok := state.ParseEvent(strings.ToUpper(parts[len(parts)-1]))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported session event"})
		return
	}
	controller, err := s.open(r)
	if err != nil {
		s.handleError(w, err)
		return
	}
	snapshot, err := controller.TriggerEvent(r.Context(), event, nil)
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// handlePin mints a clinician PIN, stores only its hash, and returns
// the plaintext once in the response.
func (s *Server) handlePin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	controller, err := s.open(r)
	if err != nil {
		s.handleError(w, err)
		return
	}
	pin, err := cryptoutil.GeneratePin(s.settings.PinLength)
	if err != nil {
		s.handleError(w, err)
		return
	}
	hash, err := cryptoutil.HashPin(pin)
	if err != nil {
		s.handleError(w, err)
		return
	}
	issuedAt := time.Now().UTC()
	snapshot, err := controller.AssignPin(r.Context(), hash, issuedAt)
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pin":      pin,
		"issuedAt": issuedAt,
		"snapshot": snapshot,
	})
}

func (s *Server) open(r *http.Request) (*session.Controller, error) {
	rc, err := extractRequestContext(r)
	if err != nil {
		return nil, err
	}
	return s.runtime.Open(r.Context(), rc.CaseID, rc.ClinicianID)
}

func routerInput(body bioRequest) (agent.RouterInput, error) {
	switch strings.ToLower(strings.TrimSpace(body.InputType)) {
	case "audio":
		input, err := agent.AudioInput(*body.Artifact)
		if err != nil {
			return agent.RouterInput{}, err
		}
		input.Patient = body.Patient
		input.Consent = body.Consent
		return input, nil
	case "", "ocr":
		input, err := agent.OCRInput(*body.Artifact)
		if err != nil {
			return agent.RouterInput{}, err
		}
		input.Patient = body.Patient
		input.Consent = body.Consent
		return input, nil
	default:
		return agent.RouterInput{}, errors.New("server: unsupported input type")
	}
}

func readJSONBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errInvalidJSON
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return errInvalidJSON
	}
	return nil
}

// handleError maps domain errors onto HTTP statuses: missing identity
// reads as a bad request, ownership mismatch as forbidden, and an
// illegal workflow transition as a conflict.
func (s *Server) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errInvalidJSON):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
	case errors.Is(err, session.ErrMissingIdentity):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing session or clinician identifier"})
	case errors.Is(err, session.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "clinician not authorized for requested session"})
	case errors.Is(err, state.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		s.logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "unexpected server error"})
	}
}
