package syncengine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Pusher is the part of the engine the scheduler drives.
type Pusher interface {
	Push(ctx context.Context, tenant uuid.UUID) (*Report, error)
}

// TenantSource yields the tenant to push for. An error skips the tick, e.g.
// before the installation is activated.
type TenantSource func(ctx context.Context) (uuid.UUID, error)

// Scheduler runs Push on its own goroutine: once after an initial delay, then
// on every interval tick, and whenever TriggerNow is called.
type Scheduler struct {
	pusher       Pusher
	tenant       TenantSource
	interval     time.Duration
	initialDelay time.Duration
	trigger      chan struct{}
	logger       *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler(pusher Pusher, tenant TenantSource, interval, initialDelay time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if initialDelay < 0 {
		initialDelay = 0
	}
	return &Scheduler{
		pusher:       pusher,
		tenant:       tenant,
		interval:     interval,
		initialDelay: initialDelay,
		trigger:      make(chan struct{}, 1),
		logger:       slog.Default().With("component", "scheduler"),
	}
}

// Start launches the loop. It returns immediately; calling it twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

// Stop cancels the loop and waits for an in-flight push to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// TriggerNow requests an immediate push. Requests made while one is pending
// collapse into it.
func (s *Scheduler) TriggerNow() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	timer := time.NewTimer(s.initialDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	case <-s.trigger:
	}
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.trigger:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		s.logger.Debug("no tenant to push for, skipping", "error", err)
		return
	}

	report, err := s.pusher.Push(ctx, tenant)
	switch {
	case errors.Is(err, ErrCycleInProgress):
		s.logger.Info("sync cycle still running, skipping push", "tenant", tenant)
	case err != nil:
		s.logger.Warn("push finished with errors", "tenant", tenant, "error", err)
	default:
		s.logger.Info("push finished", "tenant", tenant, "pushed", report.Pushed(), "duration", report.Duration)
	}
}
