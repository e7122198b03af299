package server

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/wardlight/intake/internal/session"
)

const (
	sessionHeader   = "x-session-id"
	clinicianHeader = "x-clinician-id"
	sessionCookie   = "intake_session"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var (
	casePrefixes      = []string{"case-", "session-", "sid-"}
	clinicianPrefixes = []string{"clinician-", "cid-"}
)

// RequestContext carries the authenticated identity pair for a request.
type RequestContext struct {
	CaseID      string
	ClinicianID string
}

// extractRequestContext resolves the case and clinician identifiers
// from headers, falling back to the session cookie for the case id.
// Identifiers must be bare UUIDs or UUIDs behind a known prefix;
// anything else reads as missing.
func extractRequestContext(r *http.Request) (RequestContext, error) {
	caseCandidate := strings.TrimSpace(r.Header.Get(sessionHeader))
	if caseCandidate == "" {
		if cookie, err := r.Cookie(sessionCookie); err == nil {
			caseCandidate = strings.TrimSpace(cookie.Value)
		}
	}

	caseID := sanitizeIdentifier(caseCandidate, casePrefixes)
	clinicianID := sanitizeIdentifier(strings.TrimSpace(r.Header.Get(clinicianHeader)), clinicianPrefixes)
	if caseID == "" || clinicianID == "" {
		return RequestContext{}, session.ErrMissingIdentity
	}
	return RequestContext{CaseID: caseID, ClinicianID: clinicianID}, nil
}

// sanitizeIdentifier accepts a bare UUID or a prefixed UUID and
// returns the UUID, or "" when the value matches neither shape.
func sanitizeIdentifier(value string, prefixes []string) string {
	if value == "" {
		return ""
	}
	lowered := strings.ToLower(value)
	if uuidPattern.MatchString(lowered) {
		return lowered
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(lowered, prefix) {
			candidate := lowered[len(prefix):]
			if uuidPattern.MatchString(candidate) {
				return candidate
			}
		}
	}
	return ""
}
