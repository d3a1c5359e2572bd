// Package syncengine reconciles the local store of one installation with the
// shared remote store: a full pull at activation and periodic pushes of
// unsynced rows, entity by entity in dependency order.
package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go-pos-sync/internal/model"
	"go-pos-sync/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrCycleInProgress = errors.New("a sync cycle is already running for this tenant")
	ErrIncompletePush  = errors.New("some records could not be pushed")
)

// Remote is the collection API of the shared store.
type Remote interface {
	FetchAll(ctx context.Context, collection string, tenant uuid.UUID) ([]json.RawMessage, error)
	Upsert(ctx context.Context, collection string, payload []byte) error
}

type Engine struct {
	store  *repository.Store
	remote Remote
	phases map[model.EntityKind]phase
	logger *slog.Logger

	mu        sync.Mutex
	status    map[uuid.UUID]*Status
	reporters []Reporter
}

func NewEngine(store *repository.Store, remote Remote, reporters ...Reporter) *Engine {
	logger := slog.Default().With("component", "syncengine")
	return &Engine{
		store:     store,
		remote:    remote,
		phases:    buildPhases(logger),
		logger:    logger,
		status:    make(map[uuid.UUID]*Status),
		reporters: reporters,
	}
}

// AddReporter registers another progress listener.
func (e *Engine) AddReporter(r Reporter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reporters = append(e.reporters, r)
}

// Status returns a snapshot of the tenant's sync state.
func (e *Engine) Status(tenant uuid.UUID) Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.status[tenant]; ok {
		return *st
	}
	return Status{Tenant: tenant, State: StateIdle}
}

// Pull downloads every entity of the tenant in dependency order.
func (e *Engine) Pull(ctx context.Context, tenant uuid.UUID) (*Report, error) {
	return e.PullEntities(ctx, tenant, model.SyncOrder...)
}

// PullEntities pulls the given kinds in the given order. Each kind is applied
// in its own transaction; a fetch failure stops the cycle, leaving earlier
// kinds applied.
func (e *Engine) PullEntities(ctx context.Context, tenant uuid.UUID, kinds ...model.EntityKind) (*Report, error) {
	report, err := e.begin(tenant, DirectionPull)
	if err != nil {
		return nil, err
	}

	err = e.pull(ctx, tenant, kinds, report)
	e.finish(report, err)
	return report, err
}

func (e *Engine) pull(ctx context.Context, tenant uuid.UUID, kinds []model.EntityKind, report *Report) error {
	for _, kind := range kinds {
		p, ok := e.phases[kind]
		if !ok {
			return unknownKind(kind)
		}
		rep := &EntityReport{Kind: kind}
		report.Entities = append(report.Entities, rep)
		e.emit(Event{Tenant: tenant, Direction: DirectionPull, Stage: StagePhaseStarted, State: StateRunning, Kind: kind})

		rows, err := e.remote.FetchAll(ctx, string(kind), tenant)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", kind, err)
		}
		err = e.store.Transaction(ctx, func(tx *repository.Store) error {
			return p.Pull(ctx, tx, tenant, rows, rep)
		})
		if err != nil {
			return fmt.Errorf("apply %s: %w", kind, err)
		}
		e.emit(Event{Tenant: tenant, Direction: DirectionPull, Stage: StagePhaseFinished, State: StateRunning, Kind: kind, Counts: rep})
	}
	return nil
}

// Push uploads every unsynced row of the tenant in dependency order. Rows
// that fail stay unsynced for the next cycle; the cycle then reports
// ErrIncompletePush.
func (e *Engine) Push(ctx context.Context, tenant uuid.UUID) (*Report, error) {
	report, err := e.begin(tenant, DirectionPush)
	if err != nil {
		return nil, err
	}

	err = e.push(ctx, tenant, report)
	e.finish(report, err)
	return report, err
}

func (e *Engine) push(ctx context.Context, tenant uuid.UUID, report *Report) error {
	for _, kind := range model.SyncOrder {
		p := e.phases[kind]
		rep := &EntityReport{Kind: kind}
		report.Entities = append(report.Entities, rep)
		e.emit(Event{Tenant: tenant, Direction: DirectionPush, Stage: StagePhaseStarted, State: StateRunning, Kind: kind})

		if err := p.Push(ctx, e.store, e.remote, tenant, rep); err != nil {
			return fmt.Errorf("push %s: %w", kind, err)
		}
		e.emit(Event{Tenant: tenant, Direction: DirectionPush, Stage: StagePhaseFinished, State: StateRunning, Kind: kind, Counts: rep})
	}
	if n := report.Failed(); n > 0 {
		return fmt.Errorf("%d records: %w", n, ErrIncompletePush)
	}
	return nil
}

// begin claims the tenant for one cycle. Pull and push of the same tenant
// never overlap.
func (e *Engine) begin(tenant uuid.UUID, dir Direction) (*Report, error) {
	if tenant == uuid.Nil {
		return nil, model.ErrNoActiveTenant
	}

	e.mu.Lock()
	st, ok := e.status[tenant]
	if !ok {
		st = &Status{Tenant: tenant}
		e.status[tenant] = st
	}
	if st.State == StateRunning {
		e.mu.Unlock()
		return nil, fmt.Errorf("%s %s: %w", dir, tenant, ErrCycleInProgress)
	}
	now := time.Now()
	st.State = StateRunning
	st.Direction = dir
	st.UpdatedAt = now
	e.mu.Unlock()

	e.emit(Event{Tenant: tenant, Direction: dir, Stage: StageCycleStarted, State: StateRunning})
	return &Report{Tenant: tenant, Direction: dir, StartedAt: now}, nil
}

func (e *Engine) finish(report *Report, err error) {
	report.Duration = time.Since(report.StartedAt)
	outcome := StateSucceeded
	var msg string
	if err != nil {
		outcome = StateFailed
		msg = err.Error()
	}

	e.emit(Event{Tenant: report.Tenant, Direction: report.Direction, Stage: StageCycleFinished, State: outcome, Error: msg})

	e.mu.Lock()
	st := e.status[report.Tenant]
	st.State = StateIdle
	st.LastOutcome = outcome
	st.LastError = msg
	st.LastReport = report
	st.UpdatedAt = time.Now()
	e.mu.Unlock()
}

func (e *Engine) emit(ev Event) {
	ev.Time = time.Now()
	e.mu.Lock()
	reporters := append([]Reporter(nil), e.reporters...)
	e.mu.Unlock()
	for _, r := range reporters {
		r.Report(ev)
	}
}
