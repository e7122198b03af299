// Package orchestrator binds workflow states to the agents that handle
// them and drives transitions through the shared state machine.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/wardlight/intake/internal/agent"
	"github.com/wardlight/intake/internal/state"
)

// Factory constructs an agent from the shared dependency set. Factories
// run once at orchestrator construction.
type Factory func(agent.Deps) agent.Agent

// DefaultBindings maps each agent-bearing workflow state to its agent
// factory. START, REVIEW, and DONE carry no agent: the transition alone
// is the step.
func DefaultBindings() map[state.SessionState]Factory {
	return map[state.SessionState]Factory{
		state.StateBioIntake:       func(d agent.Deps) agent.Agent { return agent.NewInputRouter(d) },
		state.StateWoundImaging:    func(d agent.Deps) agent.Agent { return agent.NewWoundImagingAgent(d) },
		state.StateVitals:          func(d agent.Deps) agent.Agent { return agent.NewVitalsAgent(d) },
		state.StateTime:            func(d agent.Deps) agent.Agent { return agent.NewTimeAgent(d) },
		state.StateFollowUp:        func(d agent.Deps) agent.Agent { return agent.NewFollowupAgent(d) },
		state.StateAssembleJSON:    func(d agent.Deps) agent.Agent { return agent.NewDataStewardAgent(d) },
		state.StateLinkToClinician: func(d agent.Deps) agent.Agent { return agent.NewSecurityAgent(d) },
		state.StateStoreSync:       func(d agent.Deps) agent.Agent { return agent.NewExportAgent(d) },
	}
}

// StepResult is the outcome of one advance: the machine snapshot after the
// transition (and after any record replacement by the agent), plus the
// agent result when the target state had an agent bound.
type StepResult struct {
	Snapshot    state.Snapshot
	AgentResult *agent.Result
}

// Orchestrator owns a state machine and a static map from workflow state
// to agent instance, built once at construction.
type Orchestrator struct {
	machine *state.Machine
	deps    agent.Deps
	agents  map[state.SessionState]agent.Agent
}

// New instantiates every bound agent and wires the orchestrator to the
// machine.
func New(machine *state.Machine, bindings map[state.SessionState]Factory, deps agent.Deps) (*Orchestrator, error) {
	if machine == nil {
		return nil, fmt.Errorf("orchestrator: state machine is required")
	}
	deps = deps.Normalized()
	agents := make(map[state.SessionState]agent.Agent, len(bindings))
	for bound, factory := range bindings {
		if factory == nil {
			continue
		}
		agents[bound] = factory(deps)
	}
	return &Orchestrator{machine: machine, deps: deps, agents: agents}, nil
}

// Snapshot returns the current machine snapshot.
func (o *Orchestrator) Snapshot() state.Snapshot {
	return o.machine.Current()
}

// Agent returns the agent bound to a state, if any.
func (o *Orchestrator) Agent(s state.SessionState) (agent.Agent, bool) {
	a, ok := o.agents[s]
	return a, ok
}

// RegisterAgent rebinds a state to a fresh agent instance. Escape hatch
// for tests and extensions; normal operation never mutates the map.
func (o *Orchestrator) RegisterAgent(s state.SessionState, factory Factory) {
	o.agents[s] = factory(o.deps)
}

// Advance validates and applies the event, then runs the agent bound to
// the resulting state against a context rebuilt around the
// post-transition record. When the agent replaces the record, the machine
// is re-anchored on the replacement while preserving the post-transition
// state. States without a bound agent advance with no agent output.
func (o *Orchestrator) Advance(ctx context.Context, event state.SessionEvent, input agent.Input, rc agent.RunContext) (StepResult, error) {
	if !o.machine.CanTransition(event) {
		current := o.machine.Current()
		return StepResult{}, fmt.Errorf("%w: from %s via %s", state.ErrInvalidTransition, current.State, event)
	}

	snapshot, err := o.machine.Transition(event, nil)
	if err != nil {
		return StepResult{}, err
	}

	bound, ok := o.agents[snapshot.State]
	if !ok {
		return StepResult{Snapshot: snapshot}, nil
	}

	result, err := bound.Run(ctx, input, rc.WithRecord(snapshot.Record))
	if err != nil {
		return StepResult{}, fmt.Errorf("orchestrator: %s at %s: %w", bound.Name(), snapshot.State, err)
	}

	if result.UpdatedRecord != nil {
		updated := *result.UpdatedRecord
		if len(result.Provenance) > 0 {
			updated = updated.Clone()
			updated.ProvenanceLog = append(updated.ProvenanceLog, result.Provenance...)
		}
		o.machine.Reset(updated, snapshot.State)
	}

	return StepResult{Snapshot: o.machine.Current(), AgentResult: &result}, nil
}
