// Package bus is the publish/subscribe channel between the snapshot
// publisher and the fan-out gateway. One topic per live-update channel,
// keyed by the pair; message order within a topic is preserved.
package bus

import (
	"context"
	"fmt"
	"sync"
)

// Bus publishes and subscribes raw payloads by topic.
type Bus interface {
	// Publish sends payload on topic. At-most-once: a failed publish is
	// the caller's problem to log, not to retry.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe returns a channel of payloads for topic. The channel is
	// closed when ctx is cancelled or the bus shuts down.
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)

	// Close releases bus resources.
	Close() error
}

// Topic builds the live-update topic name for a pair.
func Topic(prefix, pairY, pairX string) string {
	return fmt.Sprintf("%s.%s_%s", prefix, pairY, pairX)
}

// Memory is an in-process Bus for tests and single-binary deployments.
// Subscribers that cannot keep up have messages dropped rather than
// blocking the publisher.
type Memory struct {
	mu     sync.Mutex
	subs   map[string][]chan []byte
	closed bool
}

// NewMemory creates an in-process bus.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]chan []byte)}
}

func (m *Memory) Publish(_ context.Context, topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("bus closed")
	}

	for _, ch := range m.subs[topic] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("bus closed")
	}

	ch := make(chan []byte, 64)
	m.subs[topic] = append(m.subs[topic], ch)

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		subs := m.subs[topic]
		for i, c := range subs {
			if c == ch {
				m.subs[topic] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}()

	return ch, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, subs := range m.subs {
		for _, ch := range subs {
			close(ch)
		}
	}
	m.subs = make(map[string][]chan []byte)
	return nil
}
