// Package feed maintains one long-lived websocket connection per instrument
// to the upstream trade feed and forwards normalized ticks to the tick store.
package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/mzare-q/pairstream/internal/model"
)

const (
	// DefaultReconnectDelay is the fixed wait between reconnect attempts.
	DefaultReconnectDelay = 5 * time.Second

	handshakeTimeout = 10 * time.Second
	readTimeout      = 60 * time.Second
	pingInterval     = 20 * time.Second
	writeTimeout     = 10 * time.Second
)

// NewLogger builds the logger used by feed connectors.
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

// TickSink receives normalized ticks. Push must not block for long; the
// connector treats persistence as fire-and-forget.
type TickSink interface {
	Push(tick model.Tick)
}

// Connector owns the feed connection for a single symbol. Connectors are
// independent: a failure in one never affects another.
type Connector struct {
	symbol         string
	baseURL        string
	sink           TickSink
	logger         *logrus.Logger
	reconnectDelay time.Duration

	mu      sync.Mutex
	dropped int64
}

// NewConnector creates a connector for one symbol. baseURL is the feed
// endpoint without the stream suffix (e.g. "wss://fstream.binance.com/ws").
func NewConnector(symbol, baseURL string, sink TickSink, logger *logrus.Logger, reconnectDelay time.Duration) *Connector {
	if reconnectDelay <= 0 {
		reconnectDelay = DefaultReconnectDelay
	}
	return &Connector{
		symbol:         strings.ToLower(symbol),
		baseURL:        strings.TrimRight(baseURL, "/"),
		sink:           sink,
		logger:         logger,
		reconnectDelay: reconnectDelay,
	}
}

// Dropped reports how many malformed or non-trade messages were discarded.
func (c *Connector) Dropped() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *Connector) streamURL() string {
	return fmt.Sprintf("%s/%s@trade", c.baseURL, c.symbol)
}

// Run connects and consumes the trade stream until ctx is cancelled.
// Any dial or read failure waits the fixed reconnect delay and retries;
// the loop never terminates on its own.
func (c *Connector) Run(ctx context.Context) {
	url := c.streamURL()
	c.logger.WithFields(logrus.Fields{"symbol": c.symbol, "url": url}).Info("Starting feed connector")

	for {
		select {
		case <-ctx.Done():
			c.logger.WithField("symbol", c.symbol).Info("Feed connector stopped")
			return
		default:
		}

		err := c.consume(ctx, url)
		if ctx.Err() != nil {
			c.logger.WithField("symbol", c.symbol).Info("Feed connector stopped")
			return
		}

		c.logger.WithFields(logrus.Fields{
			"symbol": c.symbol,
			"error":  err,
			"delay":  c.reconnectDelay,
		}).Warn("Feed disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectDelay):
		}
	}
}

// consume runs one connection lifecycle: dial, read, normalize, push.
func (c *Connector) consume(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	c.logger.WithField("symbol", c.symbol).Info("Feed connected")

	conn.SetPongHandler(func(string) error { return nil })

	// Close the connection when ctx is cancelled so the blocking read
	// below returns promptly.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	var writeMu sync.Mutex
	go func() {
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				writeMu.Lock()
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read failed: %w", err)
		}

		tick, err := Normalize(msg)
		if err != nil {
			c.mu.Lock()
			c.dropped++
			c.mu.Unlock()
			c.logger.WithFields(logrus.Fields{"symbol": c.symbol, "error": err}).Debug("Dropping message")
			continue
		}

		c.sink.Push(tick)
	}
}

// RunAll launches one connector per symbol and blocks until all stop.
func RunAll(ctx context.Context, symbols []string, baseURL string, sink TickSink, logger *logrus.Logger, reconnectDelay time.Duration) {
	var wg sync.WaitGroup
	for _, symbol := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			NewConnector(sym, baseURL, sink, logger, reconnectDelay).Run(ctx)
		}(symbol)
	}
	wg.Wait()
}
