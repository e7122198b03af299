// Package state defines the intake workflow graph and the state machine
// that walks it. The workflow is a linear chain from case start to export
// with exactly one rollback edge per non-initial state; it is not a DAG.
package state

// SessionState is a position in the intake workflow.
type SessionState string

const (
	StateStart           SessionState = "START"
	StateBioIntake       SessionState = "BIO_INTAKE"
	StateWoundImaging    SessionState = "WOUND_IMAGING"
	StateVitals          SessionState = "VITALS"
	StateTime            SessionState = "TIME"
	StateFollowUp        SessionState = "FOLLOW_UP"
	StateReview          SessionState = "REVIEW"
	StateAssembleJSON    SessionState = "ASSEMBLE_JSON"
	StateLinkToClinician SessionState = "LINK_TO_CLINICIAN"
	StateStoreSync       SessionState = "STORE_SYNC"
	StateDone            SessionState = "DONE"
)

// SessionEvent triggers a workflow transition.
type SessionEvent string

const (
	EventBegin            SessionEvent = "BEGIN"
	EventBioConfirmed     SessionEvent = "BIO_CONFIRMED"
	EventImagingConfirmed SessionEvent = "IMAGING_CONFIRMED"
	EventVitalsCaptured   SessionEvent = "VITALS_CAPTURED"
	EventTimeCaptured     SessionEvent = "TIME_CAPTURED"
	EventFollowUpResolved SessionEvent = "FOLLOW_UP_RESOLVED"
	EventReviewCompleted  SessionEvent = "REVIEW_COMPLETED"
	EventJSONAssembled    SessionEvent = "JSON_ASSEMBLED"
	EventClinicianLinked  SessionEvent = "CLINICIAN_LINKED"
	EventStored           SessionEvent = "STORED"
	EventReset            SessionEvent = "RESET"
	EventRollback         SessionEvent = "ROLLBACK"
)

// States lists every workflow state in happy-path order.
var States = []SessionState{
	StateStart, StateBioIntake, StateWoundImaging, StateVitals, StateTime,
	StateFollowUp, StateReview, StateAssembleJSON, StateLinkToClinician,
	StateStoreSync, StateDone,
}

// Events lists every recognized session event.
var Events = []SessionEvent{
	EventBegin, EventBioConfirmed, EventImagingConfirmed, EventVitalsCaptured,
	EventTimeCaptured, EventFollowUpResolved, EventReviewCompleted,
	EventJSONAssembled, EventClinicianLinked, EventStored, EventReset,
	EventRollback,
}

// transitions is the legal workflow graph: one forward edge per state, one
// rollback edge per non-initial state, and a reset loop at the terminal
// state. Unsupported (state, event) pairs are simply absent.
var transitions = map[SessionState]map[SessionEvent]SessionState{
	StateStart: {
		EventBegin: StateBioIntake,
	},
	StateBioIntake: {
		EventBioConfirmed: StateWoundImaging,
		EventRollback:     StateStart,
	},
	StateWoundImaging: {
		EventImagingConfirmed: StateVitals,
		EventReset:            StateBioIntake,
		EventRollback:         StateBioIntake,
	},
	StateVitals: {
		EventVitalsCaptured: StateTime,
		EventRollback:       StateWoundImaging,
	},
	StateTime: {
		EventTimeCaptured: StateFollowUp,
		EventRollback:     StateVitals,
	},
	StateFollowUp: {
		EventFollowUpResolved: StateReview,
		EventRollback:         StateTime,
	},
	StateReview: {
		EventReviewCompleted: StateAssembleJSON,
		EventRollback:        StateFollowUp,
	},
	StateAssembleJSON: {
		EventJSONAssembled: StateLinkToClinician,
		EventRollback:      StateReview,
	},
	StateLinkToClinician: {
		EventClinicianLinked: StateStoreSync,
		EventRollback:        StateAssembleJSON,
	},
	StateStoreSync: {
		EventStored:   StateDone,
		EventRollback: StateLinkToClinician,
	},
	StateDone: {
		EventReset: StateStart,
	},
}

// terminal marks states with no forward successor.
var terminal = map[SessionState]bool{
	StateDone: true,
}

// Next resolves the transition table for (from, event). The bool result is
// false when the pair has no edge.
func Next(from SessionState, event SessionEvent) (SessionState, bool) {
	edges, ok := transitions[from]
	if !ok {
		return "", false
	}
	next, ok := edges[event]
	return next, ok
}

// Terminal reports whether the state ends the workflow.
func Terminal(s SessionState) bool {
	return terminal[s]
}

// ParseEvent maps a raw event name to a SessionEvent. The bool result is
// false for unrecognized names.
func ParseEvent(raw string) (SessionEvent, bool) {
	for _, event := range Events {
		if string(event) == raw {
			return event, true
		}
	}
	return "", false
}

// ParseState maps a raw state name to a SessionState. The bool result is
// false for unrecognized names.
func ParseState(raw string) (SessionState, bool) {
	for _, s := range States {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}
