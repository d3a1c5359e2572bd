package syncengine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type countingPusher struct {
	calls atomic.Int32
	err   error
}

func (p *countingPusher) Push(ctx context.Context, tenant uuid.UUID) (*Report, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return &Report{Tenant: tenant, Direction: DirectionPush}, nil
}

func fixedTenant(id uuid.UUID) TenantSource {
	return func(context.Context) (uuid.UUID, error) { return id, nil }
}

func TestScheduler_PushesOnInterval(t *testing.T) {
	pusher := &countingPusher{}
	s := NewScheduler(pusher, fixedTenant(uuid.New()), 10*time.Millisecond, 0)
	s.Start(context.Background())
	defer s.Stop()

	assert.Eventually(t, func() bool { return pusher.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_WaitsForInitialDelay(t *testing.T) {
	pusher := &countingPusher{}
	s := NewScheduler(pusher, fixedTenant(uuid.New()), time.Hour, time.Hour)
	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, pusher.calls.Load())
}

func TestScheduler_TriggerNow(t *testing.T) {
	pusher := &countingPusher{}
	s := NewScheduler(pusher, fixedTenant(uuid.New()), time.Hour, time.Hour)
	s.Start(context.Background())
	defer s.Stop()

	s.TriggerNow()
	assert.Eventually(t, func() bool { return pusher.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	s.TriggerNow()
	assert.Eventually(t, func() bool { return pusher.calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_SkipsWithoutTenant(t *testing.T) {
	pusher := &countingPusher{}
	noTenant := func(context.Context) (uuid.UUID, error) { return uuid.Nil, errors.New("not activated") }
	s := NewScheduler(pusher, noTenant, 5*time.Millisecond, 0)
	s.Start(context.Background())

	time.Sleep(40 * time.Millisecond)
	s.Stop()
	assert.Zero(t, pusher.calls.Load())
}

func TestScheduler_KeepsRunningWhenCycleBusy(t *testing.T) {
	pusher := &countingPusher{err: ErrCycleInProgress}
	s := NewScheduler(pusher, fixedTenant(uuid.New()), 5*time.Millisecond, 0)
	s.Start(context.Background())
	defer s.Stop()

	assert.Eventually(t, func() bool { return pusher.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := NewScheduler(&countingPusher{}, fixedTenant(uuid.New()), time.Hour, time.Hour)
	s.Stop()
	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
	s.Stop()
}
