package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wardlight/intake/internal/agent"
	"github.com/wardlight/intake/internal/session"
)

var testTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	runtime := session.NewRuntime(
		session.WithRuntimeDeps(agent.Deps{Clock: func() time.Time { return testTime }}),
		session.WithRuntimeClock(func() time.Time { return testTime }),
	)
	srv := New(Settings{PinLength: 6}, runtime)
	return srv.Handler()
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string, identity bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, reader)
	if identity {
		r.Header.Set("x-session-id", caseUUID)
		r.Header.Set("x-clinician-id", clinicianUUID)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	w := doRequest(t, handler, http.MethodGet, "/health", "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("health: status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestSnapshotRequiresIdentity(t *testing.T) {
	handler := newTestHandler(t)
	w := doRequest(t, handler, http.MethodGet, "/api/session", "", false)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without identity, got %d", w.Code)
	}
}

func TestSnapshotReturnsSessionView(t *testing.T) {
	handler := newTestHandler(t)
	w := doRequest(t, handler, http.MethodGet, "/api/session", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("snapshot: status %d body %s", w.Code, w.Body)
	}
	var snapshot struct {
		State string `json:"state"`
		Bio   *struct {
			MissingFields []string `json:"MissingFields"`
		} `json:"bio"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snapshot.State != "BIO_INTAKE" {
		t.Fatalf("expected BIO_INTAKE, got %q", snapshot.State)
	}
}

func TestBioUpdateAndConfirmFlow(t *testing.T) {
	handler := newTestHandler(t)

	w := doRequest(t, handler, http.MethodPost, "/api/session/bio/confirm", "", true)
	if w.Code != http.StatusConflict {
		t.Fatalf("incomplete biography should 409, got %d: %s", w.Code, w.Body)
	}

	body := `{
		"patient": {"firstName": "Ada", "lastName": "Lovelace", "dateOfBirth": "1990-12-10"},
		"consent": {"dataStorage": true, "photography": true}
	}`
	w = doRequest(t, handler, http.MethodPost, "/api/session/bio", body, true)
	if w.Code != http.StatusOK {
		t.Fatalf("bio update: status %d body %s", w.Code, w.Body)
	}

	w = doRequest(t, handler, http.MethodPost, "/api/session/bio/confirm", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm after complete bio: status %d body %s", w.Code, w.Body)
	}
	var result struct {
		OK    bool   `json:"ok"`
		State string `json:"state"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.OK || result.State != "WOUND_IMAGING" {
		t.Fatalf("unexpected confirm result: %+v", result)
	}
}

func TestBioRejectsInvalidJSON(t *testing.T) {
	handler := newTestHandler(t)
	w := doRequest(t, handler, http.MethodPost, "/api/session/bio", "{not json", true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid JSON, got %d", w.Code)
	}
}

func TestBioRejectsUnsupportedInputType(t *testing.T) {
	handler := newTestHandler(t)
	body := `{"inputType": "video", "artifact": {"id": "a1", "kind": "audio", "uri": "s3://b/a1"}}`
	w := doRequest(t, handler, http.MethodPost, "/api/session/bio", body, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported input type, got %d: %s", w.Code, w.Body)
	}
}

func TestEventEndpointParsesAndValidates(t *testing.T) {
	handler := newTestHandler(t)

	w := doRequest(t, handler, http.MethodPost, "/api/session/events/not_an_event", "", true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown event should 400, got %d", w.Code)
	}

	// STORED is a real event but illegal from BIO_INTAKE.
	w = doRequest(t, handler, http.MethodPost, "/api/session/events/stored", "", true)
	if w.Code != http.StatusConflict {
		t.Fatalf("illegal transition should 409, got %d: %s", w.Code, w.Body)
	}
}

func TestPinEndpointReturnsPlaintextOnce(t *testing.T) {
	handler := newTestHandler(t)
	w := doRequest(t, handler, http.MethodPost, "/api/session/pin", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("pin: status %d body %s", w.Code, w.Body)
	}
	var payload struct {
		Pin      string `json:"pin"`
		Snapshot struct {
			Record struct {
				ClinicianPinHash string `json:"clinicianPinHash"`
			} `json:"record"`
		} `json:"snapshot"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Pin) != 6 {
		t.Fatalf("expected six digit pin, got %q", payload.Pin)
	}
	if payload.Snapshot.Record.ClinicianPinHash == "" || payload.Snapshot.Record.ClinicianPinHash == payload.Pin {
		t.Fatalf("record must carry the hash, never the plaintext: %q", payload.Snapshot.Record.ClinicianPinHash)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t)
	w := doRequest(t, handler, http.MethodDelete, "/api/session", "", true)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
	if allow := w.Header().Get("Allow"); allow == "" {
		t.Fatalf("405 response should name allowed methods")
	}
}
