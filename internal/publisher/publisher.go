// Package publisher drives the analytics engine on a fixed cadence and
// emits one PairSnapshot per configured pair onto the bus each cycle.
package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mzare-q/pairstream/internal/bus"
	"github.com/mzare-q/pairstream/internal/model"
)

// Pair is one configured (y, x) instrument pair.
type Pair struct {
	Y string
	X string
}

// Key is the pair identifier used for topics and the snapshot cache.
func (p Pair) Key() string { return p.Y + "_" + p.X }

// Engine computes the current snapshot for a pair. It never fails.
type Engine interface {
	Compute(pairY, pairX string) model.PairSnapshot
}

// Cache stores the latest payload per pair for the request/response path.
type Cache interface {
	Save(pair string, payload []byte) error
}

// Publisher runs the publish cycle. Failures for one pair are logged and
// never abort the loop or affect other pairs.
type Publisher struct {
	engine      Engine
	bus         bus.Bus
	cache       Cache
	pairs       []Pair
	topicPrefix string
	interval    time.Duration
	logger      *slog.Logger
}

// New creates a publisher for the configured pairs.
func New(engine Engine, b bus.Bus, cache Cache, pairs []Pair, topicPrefix string, interval time.Duration, logger *slog.Logger) *Publisher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Publisher{
		engine:      engine,
		bus:         b,
		cache:       cache,
		pairs:       pairs,
		topicPrefix: topicPrefix,
		interval:    interval,
		logger:      logger,
	}
}

// PublishOnce computes and publishes every configured pair one time.
func (p *Publisher) PublishOnce(ctx context.Context) {
	for _, pair := range p.pairs {
		snap := p.engine.Compute(pair.Y, pair.X)

		payload, err := json.Marshal(snap)
		if err != nil {
			p.logger.Error("Snapshot marshal failed", "pair", pair.Key(), "error", err)
			continue
		}

		topic := bus.Topic(p.topicPrefix, pair.Y, pair.X)
		if err := p.bus.Publish(ctx, topic, payload); err != nil {
			p.logger.Error("Snapshot publish failed", "pair", pair.Key(), "error", err)
		}

		if p.cache != nil {
			if err := p.cache.Save(pair.Key(), payload); err != nil {
				p.logger.Error("Snapshot cache save failed", "pair", pair.Key(), "error", err)
			}
		}
	}
}

// Run publishes every pair once per interval until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	p.logger.Info("Starting snapshot publisher",
		"pairs", len(p.pairs),
		"interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Snapshot publisher stopped")
			return
		case <-ticker.C:
			p.PublishOnce(ctx)
		}
	}
}
