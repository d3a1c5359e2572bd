package syncengine

import (
	"log/slog"
	"time"

	"go-pos-sync/internal/model"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Direction string

const (
	DirectionPull Direction = "pull"
	DirectionPush Direction = "push"
)

type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

type Stage string

const (
	StageCycleStarted  Stage = "cycle_started"
	StagePhaseStarted  Stage = "phase_started"
	StagePhaseFinished Stage = "phase_finished"
	StageCycleFinished Stage = "cycle_finished"
)

// EntityReport counts what one phase did with one entity kind.
type EntityReport struct {
	Kind     model.EntityKind `json:"kind"`
	Fetched  int              `json:"fetched"`
	Upserted int              `json:"upserted"`
	Skipped  int              `json:"skipped"`
	Pushed   int              `json:"pushed"`
	Failed   int              `json:"failed"`
	// Stale rows were posted but changed locally meanwhile; they stay unsynced.
	Stale int `json:"stale"`
}

// Report summarises one pull or push cycle.
type Report struct {
	Tenant    uuid.UUID       `json:"tenant_id"`
	Direction Direction       `json:"direction"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Entities  []*EntityReport `json:"entities"`
}

func (r *Report) Skipped() int {
	return lo.SumBy(r.Entities, func(e *EntityReport) int { return e.Skipped })
}

func (r *Report) Failed() int {
	return lo.SumBy(r.Entities, func(e *EntityReport) int { return e.Failed })
}

func (r *Report) Pushed() int {
	return lo.SumBy(r.Entities, func(e *EntityReport) int { return e.Pushed })
}

func (r *Report) Upserted() int {
	return lo.SumBy(r.Entities, func(e *EntityReport) int { return e.Upserted })
}

// Entity returns the counters of kind, or nil if the cycle did not reach it.
func (r *Report) Entity(kind model.EntityKind) *EntityReport {
	e, _ := lo.Find(r.Entities, func(e *EntityReport) bool { return e.Kind == kind })
	return e
}

// Status is the engine's view of one tenant.
type Status struct {
	Tenant      uuid.UUID `json:"tenant_id"`
	State       State     `json:"state"`
	Direction   Direction `json:"direction,omitempty"`
	LastOutcome State     `json:"last_outcome,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	LastReport  *Report   `json:"last_report,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Event is a progress notification emitted while a cycle runs.
type Event struct {
	Tenant    uuid.UUID        `json:"tenant_id"`
	Direction Direction        `json:"direction"`
	Stage     Stage            `json:"stage"`
	State     State            `json:"state"`
	Kind      model.EntityKind `json:"kind,omitempty"`
	Counts    *EntityReport    `json:"counts,omitempty"`
	Error     string           `json:"error,omitempty"`
	Time      time.Time        `json:"time"`
}

// Reporter receives progress events. Implementations must not block.
type Reporter interface {
	Report(Event)
}

type ReporterFunc func(Event)

func (f ReporterFunc) Report(e Event) { f(e) }

// LogReporter writes events to a structured logger.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) Report(e Event) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"tenant", e.Tenant, "direction", e.Direction, "stage", e.Stage, "state", e.State}
	if e.Kind != "" {
		attrs = append(attrs, "kind", e.Kind)
	}
	if e.Counts != nil {
		attrs = append(attrs,
			"fetched", e.Counts.Fetched,
			"upserted", e.Counts.Upserted,
			"skipped", e.Counts.Skipped,
			"pushed", e.Counts.Pushed,
			"failed", e.Counts.Failed,
		)
	}
	if e.Error != "" {
		logger.Warn("sync progress", append(attrs, "error", e.Error)...)
		return
	}
	if e.Stage == StagePhaseStarted {
		logger.Debug("sync progress", attrs...)
		return
	}
	logger.Info("sync progress", attrs...)
}
