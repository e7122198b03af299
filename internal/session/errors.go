package session

import "errors"

// ErrMissingIdentity is returned when the case or clinician identifier is
// absent or malformed. Raised before any repository access.
var ErrMissingIdentity = errors.New("session: missing case or clinician identifier")

// ErrUnauthorized is returned when an existing record belongs to a
// different clinician than the requester. Raised before any agent runs.
var ErrUnauthorized = errors.New("session: clinician not authorized for requested case")
