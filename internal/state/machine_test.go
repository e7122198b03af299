package state

import (
	"errors"
	"testing"
	"time"

	"github.com/wardlight/intake/internal/schema"
)

var testTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestMachine(t *testing.T, initial SessionState) (*Machine, *time.Time) {
	t.Helper()
	now := testTime
	record := schema.NewCaseRecord(now)
	m := NewMachine(record, initial, WithClock(func() time.Time { return now }))
	return m, &now
}

func TestHappyPathWalk(t *testing.T) {
	steps := []struct {
		event SessionEvent
		want  SessionState
	}{
		{EventBegin, StateBioIntake},
		{EventBioConfirmed, StateWoundImaging},
		{EventImagingConfirmed, StateVitals},
		{EventVitalsCaptured, StateTime},
		{EventTimeCaptured, StateFollowUp},
		{EventFollowUpResolved, StateReview},
		{EventReviewCompleted, StateAssembleJSON},
		{EventJSONAssembled, StateLinkToClinician},
		{EventClinicianLinked, StateStoreSync},
		{EventStored, StateDone},
	}

	m, _ := newTestMachine(t, StateStart)
	for _, step := range steps {
		snap, err := m.Transition(step.event, nil)
		if err != nil {
			t.Fatalf("transition %s: %v", step.event, err)
		}
		if snap.State != step.want {
			t.Fatalf("after %s: got %s, want %s", step.event, snap.State, step.want)
		}
		if snap.Record.StorageMeta.State != string(step.want) {
			t.Fatalf("durable state not stamped: got %q", snap.Record.StorageMeta.State)
		}
	}
	if !m.IsTerminal() {
		t.Fatalf("expected DONE to be terminal")
	}
}

func TestInvalidTransitionLeavesMachineUntouched(t *testing.T) {
	m, _ := newTestMachine(t, StateBioIntake)
	before := m.Current()

	_, err := m.Transition(EventStored, func(r schema.CaseRecord) schema.CaseRecord {
		r.Patient.FirstName = "should-not-apply"
		return r
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	after := m.Current()
	if after.State != before.State {
		t.Fatalf("state changed on failed transition: %s -> %s", before.State, after.State)
	}
	if after.Record.Patient.FirstName != "" {
		t.Fatalf("record mutated on failed transition")
	}
	if !after.Record.UpdatedAt.Equal(before.Record.UpdatedAt) {
		t.Fatalf("updatedAt advanced on failed transition")
	}
}

func TestTransitionAdvancesUpdatedAt(t *testing.T) {
	m, now := newTestMachine(t, StateStart)
	created := m.Current().Record.UpdatedAt

	*now = now.Add(5 * time.Minute)
	snap, err := m.Transition(EventBegin, nil)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if !snap.Record.UpdatedAt.After(created) {
		t.Fatalf("updatedAt did not advance: %v vs %v", snap.Record.UpdatedAt, created)
	}
}

func TestRollbackFromEveryNonInitialState(t *testing.T) {
	rollbacks := map[SessionState]SessionState{
		StateBioIntake:       StateStart,
		StateWoundImaging:    StateBioIntake,
		StateVitals:          StateWoundImaging,
		StateTime:            StateVitals,
		StateFollowUp:        StateTime,
		StateReview:          StateFollowUp,
		StateAssembleJSON:    StateReview,
		StateLinkToClinician: StateAssembleJSON,
		StateStoreSync:       StateLinkToClinician,
	}
	for from, want := range rollbacks {
		m, _ := newTestMachine(t, from)
		snap, err := m.Transition(EventRollback, nil)
		if err != nil {
			t.Fatalf("rollback from %s: %v", from, err)
		}
		if snap.State != want {
			t.Fatalf("rollback from %s: got %s, want %s", from, snap.State, want)
		}
	}
}

func TestDoneOnlyAcceptsReset(t *testing.T) {
	m, _ := newTestMachine(t, StateDone)
	for _, event := range Events {
		if event == EventReset {
			continue
		}
		if m.CanTransition(event) {
			t.Fatalf("DONE should reject %s", event)
		}
	}
	snap, err := m.Transition(EventReset, nil)
	if err != nil {
		t.Fatalf("reset from DONE: %v", err)
	}
	if snap.State != StateStart {
		t.Fatalf("reset should return to START, got %s", snap.State)
	}
}

func TestImagingResetReturnsToBio(t *testing.T) {
	m, _ := newTestMachine(t, StateWoundImaging)
	snap, err := m.Transition(EventReset, nil)
	if err != nil {
		t.Fatalf("reset from WOUND_IMAGING: %v", err)
	}
	if snap.State != StateBioIntake {
		t.Fatalf("got %s, want BIO_INTAKE", snap.State)
	}
}

func TestTransitionRunsUpdater(t *testing.T) {
	m, _ := newTestMachine(t, StateStart)
	snap, err := m.Transition(EventBegin, func(r schema.CaseRecord) schema.CaseRecord {
		r.Patient.FirstName = "Ada"
		return r
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if snap.Record.Patient.FirstName != "Ada" {
		t.Fatalf("updater not applied")
	}
}

func TestParseHelpers(t *testing.T) {
	if _, ok := ParseEvent("BIO_CONFIRMED"); !ok {
		t.Fatalf("known event not parsed")
	}
	if _, ok := ParseEvent("NOT_AN_EVENT"); ok {
		t.Fatalf("unknown event parsed")
	}
	if s, ok := ParseState("WOUND_IMAGING"); !ok || s != StateWoundImaging {
		t.Fatalf("known state not parsed: %v %v", s, ok)
	}
	if _, ok := ParseState("wound_imaging"); ok {
		t.Fatalf("state parsing should be case sensitive")
	}
}
