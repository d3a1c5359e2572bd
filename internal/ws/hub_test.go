package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go-pos-sync/internal/model"
	"go-pos-sync/internal/syncengine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closed bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestHub_BroadcastsToClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	good := &fakeConn{}
	bad := &fakeConn{fail: true}
	hub.Register <- good
	hub.Register <- bad

	hub.Report(syncengine.Event{Direction: syncengine.DirectionPush, Stage: syncengine.StagePhaseStarted, Kind: model.KindProducts})

	require.Eventually(t, func() bool { return good.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	var msg struct {
		Type    string           `json:"type"`
		Payload syncengine.Event `json:"payload"`
	}
	good.mu.Lock()
	require.NoError(t, json.Unmarshal(good.frames[0], &msg))
	good.mu.Unlock()
	assert.Equal(t, "sync_progress", msg.Type)
	assert.Equal(t, model.KindProducts, msg.Payload.Kind)

	hub.Unregister <- good
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	good.mu.Lock()
	assert.True(t, good.closed)
	good.mu.Unlock()
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	// nobody drains the buffer
	for i := 0; i < cap(hub.Broadcast)+10; i++ {
		hub.Publish("tick", i)
	}
	assert.Len(t, hub.Broadcast, cap(hub.Broadcast))
}
