package progress

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishToRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	hub.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	go hub.Run(ctx)

	listener := NewClient(hub, nil, RoomMigrations)
	other := NewClient(hub, nil, "elsewhere")
	require.True(t, hub.Register(listener))
	require.True(t, hub.Register(other))
	require.Eventually(t, func() bool { return hub.ClientCount(RoomMigrations) == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(RoomMigrations, EventMigrationStarted, map[string]string{"profile_type": "PP10"})

	select {
	case raw := <-listener.send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, EventMigrationStarted, msg.Type)
		assert.Equal(t, RoomMigrations, msg.Room)
		assert.Equal(t, "2026-03-01T12:00:00Z", msg.SentAt)
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
	assert.Empty(t, other.send)
}

func TestHub_PublishWithoutListenersIsNoop(t *testing.T) {
	hub := NewHub(nil)
	assert.NotPanics(t, func() { hub.Publish(RoomMigrations, EventMigrationJob, nil) })
}

func TestHub_StopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	c := NewClient(hub, nil, RoomMigrations)
	require.True(t, hub.Register(c))
	cancel()
	<-done

	_, open := <-c.send
	assert.False(t, open)
	assert.False(t, hub.Register(NewClient(hub, nil, RoomMigrations)))
}
