package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
}

func TestHub_AddAndRemoveClient(t *testing.T) {
	hub := runHub(t)
	client := &Client{hub: hub, send: make(chan []byte, 1)}

	hub.register <- client
	assert.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, time.Second, 10*time.Millisecond)

	hub.unregister <- client
	assert.Eventually(t, func() bool { return hub.ConnectedClients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_Broadcast(t *testing.T) {
	hub := runHub(t)
	client := &Client{hub: hub, send: make(chan []byte, 10)}

	hub.register <- client
	hub.Broadcast("run-1", EventSessionProgress, map[string]int{"frame": 30})

	select {
	case msg := <-client.send:
		var event Event
		require.NoError(t, json.Unmarshal(msg, &event))
		assert.Equal(t, EventSessionProgress, event.Type)
		assert.Equal(t, "run-1", event.SessionID)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestHub_SessionFilter(t *testing.T) {
	hub := runHub(t)

	watching := &Client{hub: hub, session: "run-1", send: make(chan []byte, 10)}
	other := &Client{hub: hub, session: "run-2", send: make(chan []byte, 10)}
	all := &Client{hub: hub, send: make(chan []byte, 10)}

	hub.register <- watching
	hub.register <- other
	hub.register <- all

	hub.Broadcast("run-1", EventSessionFinished, nil)

	select {
	case <-watching.send:
	case <-time.After(time.Second):
		t.Fatal("subscribed client should receive the event")
	}
	select {
	case <-all.send:
	case <-time.After(time.Second):
		t.Fatal("unfiltered client should receive the event")
	}
	select {
	case <-other.send:
		t.Fatal("client of another session should not receive the event")
	case <-time.After(100 * time.Millisecond):
	}

	hub.Broadcast("", EventGalleryReloaded, nil)
	select {
	case <-other.send:
	case <-time.After(time.Second):
		t.Fatal("global events reach every client")
	}
}

func TestHub_RunClosesClientsOnShutdown(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register <- client

	cancel()
	<-done

	_, open := <-client.send
	assert.False(t, open)
	assert.Equal(t, 0, hub.ConnectedClients())
}

func TestHub_LeaveAfterShutdownDoesNotBlock(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register <- client

	cancel()
	<-done

	left := make(chan struct{})
	go func() {
		hub.leave(client)
		close(left)
	}()

	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("leave blocked after the hub stopped")
	}

	assert.False(t, hub.join(&Client{hub: hub, send: make(chan []byte, 1)}))
}

func TestHub_LeaveWhileRunning(t *testing.T) {
	hub := runHub(t)
	client := &Client{hub: hub, send: make(chan []byte, 1)}

	hub.register <- client
	assert.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, time.Second, 10*time.Millisecond)

	hub.leave(client)
	assert.Eventually(t, func() bool { return hub.ConnectedClients() == 0 }, time.Second, 10*time.Millisecond)
}
