package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/wardlight/intake/internal/schema"
)

// ErrInvalidTransition is returned when an event has no edge from the
// current state. The machine and its record are left untouched.
var ErrInvalidTransition = errors.New("state: invalid transition")

// Snapshot is a read-only view of the machine.
type Snapshot struct {
	State  SessionState
	Record schema.CaseRecord
}

// RecordUpdater transforms the record during a transition. Implementations
// must return a new record rather than mutating the argument in place.
type RecordUpdater func(schema.CaseRecord) schema.CaseRecord

// Machine holds the current workflow position together with the record it
// governs. The record is exclusively owned: nothing else mutates it except
// through Transition and Reset.
type Machine struct {
	state  SessionState
	record schema.CaseRecord
	clock  func() time.Time
}

// Option customizes the machine.
type Option func(*Machine)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(m *Machine) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewMachine anchors a machine on the given record and initial state.
func NewMachine(record schema.CaseRecord, initial SessionState, opts ...Option) *Machine {
	m := &Machine{
		state:  initial,
		record: record,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns a snapshot of the machine.
func (m *Machine) Current() Snapshot {
	return Snapshot{State: m.state, Record: m.record}
}

// CanTransition reports whether the event has an edge from the current
// state.
func (m *Machine) CanTransition(event SessionEvent) bool {
	_, ok := Next(m.state, event)
	return ok
}

// Transition applies the event, running the optional updater against the
// record first, then stamping updatedAt and the durable workflow position.
// This is the sole state-mutating entry point besides Reset.
func (m *Machine) Transition(event SessionEvent, updater RecordUpdater) (Snapshot, error) {
	next, ok := Next(m.state, event)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: from %s via %s", ErrInvalidTransition, m.state, event)
	}
	updated := m.record
	if updater != nil {
		updated = updater(m.record)
	}
	updated.UpdatedAt = m.clock()
	updated.StorageMeta.State = string(next)
	m.record = updated
	m.state = next
	return m.Current(), nil
}

// IsTerminal reports whether the machine sits at the terminal state.
func (m *Machine) IsTerminal() bool {
	return Terminal(m.state)
}

// Reset unconditionally re-anchors the machine on a new record and state.
// Used after an agent run supplies a replacement record; the transition
// that put the machine here already happened, so nothing is validated.
func (m *Machine) Reset(record schema.CaseRecord, s SessionState) {
	record.StorageMeta.State = string(s)
	m.record = record
	m.state = s
}
