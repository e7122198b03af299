// Package agent defines the per-step processing units of the intake
// workflow and the contract they share. Each workflow step is handled by
// one agent: it receives a typed input plus a run context carrying the
// current record and capability handles, and returns its typed output, an
// optional fully-replaced record, follow-up prompts, and provenance.
package agent

import (
	"context"
	"time"

	"github.com/wardlight/intake/internal/schema"
)

// Input is the closed set of agent input payloads. Every concrete input
// type tags itself so the orchestrator can pass payloads through a single
// interface without reflection.
type Input interface {
	agentInput()
}

// Result captures one agent execution. UpdatedRecord, when present, is a
// full copy-on-write replacement, never a partial patch.
type Result struct {
	Data          any
	UpdatedRecord *schema.CaseRecord
	FollowUps     []string
	Provenance    []schema.ProvenanceEntry
}

// Autosave persists a candidate record mid-run so partial progress is
// durable even if the caller never separately persists.
type Autosave func(ctx context.Context, draft schema.CaseRecord) error

// RunContext carries the record and capability handles into a run. The
// capability fields are never nil: construction fills absent ones with
// no-op implementations.
type RunContext struct {
	Record    schema.CaseRecord
	Artifacts []schema.ArtifactRef
	Autosave  Autosave
	Logger    Logger
	Crypto    CryptoProvider
}

// WithRecord returns a copy of the context anchored on a different record.
func (rc RunContext) WithRecord(record schema.CaseRecord) RunContext {
	out := rc
	out.Record = record
	return out
}

// Agent is implemented by every workflow processing unit.
//
// Run never returns an error for expected validation deficiencies (missing
// consent, incomplete fields); those surface in the output data. Errors
// are reserved for programmer or caller mistakes, such as routing an
// unsupported artifact kind, and for persistence failures.
type Agent interface {
	Name() string
	PromptPath() string
	Run(ctx context.Context, input Input, rc RunContext) (Result, error)
}

// CompletionReporter is optionally implemented by agents that can judge
// whether their step needs more input.
type CompletionReporter interface {
	IsComplete(rc RunContext) bool
}

// Deps bundles the capabilities shared by agent constructors. Absent
// optional members are replaced with no-op implementations so agent logic
// never branches on presence.
type Deps struct {
	Prompts     PromptLoader
	Logger      Logger
	Crypto      CryptoProvider
	Generator   TextGenerator
	Transcriber Transcriber
	Clock       func() time.Time
}

// Normalized returns a copy of the dependency set with every nil member
// replaced by its default.
func (d Deps) Normalized() Deps {
	out := d
	if out.Prompts == nil {
		out.Prompts = NopPromptLoader{}
	}
	if out.Logger == nil {
		out.Logger = NopLogger{}
	}
	if out.Clock == nil {
		out.Clock = time.Now
	}
	return out
}

func autosave(ctx context.Context, rc RunContext, draft schema.CaseRecord) error {
	if rc.Autosave == nil {
		return nil
	}
	return rc.Autosave(ctx, draft)
}
