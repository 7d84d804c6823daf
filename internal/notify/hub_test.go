package notify

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewHub(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	if hub == nil {
		t.Fatal("expected hub to be created")
	}

	if hub.clients == nil {
		t.Error("expected clients map to be initialized")
	}

	if hub.broadcast == nil {
		t.Error("expected broadcast channel to be initialized")
	}
}

func TestHubClientCount(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}

	hub.mu.Lock()
	hub.clients[&Client{id: "test1"}] = true
	hub.clients[&Client{id: "test2"}] = true
	hub.mu.Unlock()

	if hub.ClientCount() != 2 {
		t.Errorf("expected 2 clients, got %d", hub.ClientCount())
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	go hub.Run()

	client := &Client{
		id:   "test-client",
		hub:  hub,
		send: make(chan []byte, 1),
	}

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client after register, got %d", hub.ClientCount())
	}

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after unregister, got %d", hub.ClientCount())
	}
}

func TestHubBroadcastToMultipleClients(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	go hub.Run()

	client1 := &Client{id: "client1", hub: hub, send: make(chan []byte, 10)}
	client2 := &Client{id: "client2", hub: hub, send: make(chan []byte, 10)}

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	message := []byte("test broadcast")
	hub.Broadcast(message)
	time.Sleep(10 * time.Millisecond)

	for _, client := range []*Client{client1, client2} {
		select {
		case msg := <-client.send:
			if string(msg) != string(message) {
				t.Errorf("%s expected %s, got %s", client.id, message, msg)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("%s did not receive message", client.id)
		}
	}
}

func TestBroadcastRemovesSlowClient(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	slow := &Client{id: "slow", hub: hub, send: make(chan []byte)}
	fast := &Client{id: "fast", hub: hub, send: make(chan []byte, 10)}

	hub.mu.Lock()
	hub.clients[slow] = true
	hub.clients[fast] = true
	hub.mu.Unlock()

	// ClientCount reads the map concurrently while broadcastAll removes
	// the client whose send buffer is full.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.ClientCount()
		}
		close(done)
	}()

	hub.broadcastAll([]byte("update"))
	<-done

	if hub.ClientCount() != 1 {
		t.Errorf("expected slow client to be removed, got %d clients", hub.ClientCount())
	}

	select {
	case msg := <-fast.send:
		if string(msg) != "update" {
			t.Errorf("expected update, got %s", msg)
		}
	default:
		t.Error("fast client did not receive message")
	}

	if _, open := <-slow.send; open {
		t.Error("expected slow client send channel to be closed")
	}
}

func TestBroadcastStatsUpdated(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	go hub.Run()

	client := &Client{id: "client", hub: hub, send: make(chan []byte, 10)}
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastStatsUpdated("calls", "email")

	select {
	case msg := <-client.send:
		var event StatsUpdated
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("failed to unmarshal event: %v", err)
		}
		if event.Type != "stats_updated" {
			t.Errorf("expected type stats_updated, got %q", event.Type)
		}
		if len(event.Sources) != 2 || event.Sources[0] != "calls" {
			t.Errorf("unexpected sources: %v", event.Sources)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("client did not receive event")
	}
}

func TestBroadcastStatsUpdatedNilHub(t *testing.T) {
	var hub *Hub

	// Must not panic
	hub.BroadcastStatsUpdated("calls")
}
