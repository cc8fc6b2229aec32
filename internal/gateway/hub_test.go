package gateway

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/mzare-q/pairstream/internal/bus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testClient(h *Hub, topic string, buffer int) *Client {
	return &Client{hub: h, topic: topic, send: make(chan []byte, buffer)}
}

func TestHubBroadcast(t *testing.T) {
	h := NewHub(testLogger())

	first := testClient(h, "live_updates.btcusdt_ethusdt", 4)
	second := testClient(h, "live_updates.btcusdt_ethusdt", 4)
	other := testClient(h, "live_updates.solusdt_ethusdt", 4)
	h.attach(first)
	h.attach(second)
	h.attach(other)

	h.Broadcast("live_updates.btcusdt_ethusdt", []byte("snapshot"))

	for _, c := range []*Client{first, second} {
		select {
		case got := <-c.send:
			if string(got) != "snapshot" {
				t.Errorf("Unexpected payload: %q", got)
			}
		default:
			t.Error("Subscriber did not receive the broadcast")
		}
	}

	select {
	case msg := <-other.send:
		t.Errorf("Other topic received a stray payload: %q", msg)
	default:
	}
}

func TestHubPrunesSlowSubscriber(t *testing.T) {
	h := NewHub(testLogger())
	topic := "live_updates.btcusdt_ethusdt"

	healthy := testClient(h, topic, 4)
	slow := testClient(h, topic, 0) // no buffer: any send overflows
	h.attach(healthy)
	h.attach(slow)

	h.Broadcast(topic, []byte("snapshot"))

	if n := h.Subscribers(topic); n != 1 {
		t.Errorf("Expected 1 subscriber after pruning, got %d", n)
	}
	select {
	case <-healthy.send:
	default:
		t.Error("Healthy subscriber lost the broadcast")
	}
	// The pruned client's channel must be closed.
	if _, ok := <-slow.send; ok {
		t.Error("Expected pruned client channel to be closed")
	}
}

func TestHubDetachIdempotent(t *testing.T) {
	h := NewHub(testLogger())
	c := testClient(h, "live_updates.btcusdt_ethusdt", 4)
	h.attach(c)

	h.detach(c)
	h.detach(c) // must not panic on double close

	if n := h.Subscribers("live_updates.btcusdt_ethusdt"); n != 0 {
		t.Errorf("Expected 0 subscribers, got %d", n)
	}
}

func TestHubSubscriberCount(t *testing.T) {
	h := NewHub(testLogger())
	topic := "live_updates.btcusdt_ethusdt"

	if n := h.Subscribers(topic); n != 0 {
		t.Errorf("Expected 0 subscribers on empty hub, got %d", n)
	}

	a := testClient(h, topic, 1)
	b := testClient(h, topic, 1)
	h.attach(a)
	h.attach(b)
	if n := h.Subscribers(topic); n != 2 {
		t.Errorf("Expected 2 subscribers, got %d", n)
	}

	h.detach(a)
	if n := h.Subscribers(topic); n != 1 {
		t.Errorf("Expected 1 subscriber, got %d", n)
	}
}

func TestDispatchRelaysBusMessages(t *testing.T) {
	h := NewHub(testLogger())
	mem := bus.NewMemory()
	defer mem.Close()

	topic := "live_updates.btcusdt_ethusdt"
	c := testClient(h, topic, 4)
	h.attach(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		h.Dispatch(ctx, mem, topic)
		close(done)
	}()

	// Let the dispatcher subscribe before publishing.
	deadline := time.Now().Add(time.Second)
	for {
		if err := mem.Publish(ctx, topic, []byte("snapshot")); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		select {
		case got := <-c.send:
			if string(got) != "snapshot" {
				t.Fatalf("Unexpected payload: %q", got)
			}
		case <-time.After(10 * time.Millisecond):
			if time.Now().After(deadline) {
				t.Fatal("Dispatch never relayed the payload")
			}
			continue
		}
		break
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch did not stop after cancel")
	}
}
