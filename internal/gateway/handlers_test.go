package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mzare-q/pairstream/internal/analytics"
	"github.com/mzare-q/pairstream/internal/bus"
	"github.com/mzare-q/pairstream/internal/model"
)

type fakeSnapshotRepo struct {
	payloads map[string][]byte
	err      error
}

func (f *fakeSnapshotRepo) Save(pair string, payload []byte) error {
	f.payloads[pair] = payload
	return nil
}

func (f *fakeSnapshotRepo) Latest(pair string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.payloads[pair], nil
}

type fakeCandleRepo struct {
	candles map[string][]model.Candle
}

func (f *fakeCandleRepo) Exists(string, time.Time) (bool, error) { return false, nil }
func (f *fakeCandleRepo) Create(*model.Candle) error             { return nil }

func (f *fakeCandleRepo) LatestN(symbol string, n int) ([]model.Candle, error) {
	candles := f.candles[symbol]
	if len(candles) > n {
		candles = candles[len(candles)-n:]
	}
	return candles, nil
}

func (f *fakeCandleRepo) Since(symbol string, since time.Time, limit int) ([]model.Candle, error) {
	var out []model.Candle
	for _, c := range f.candles[symbol] {
		if !c.OpenTime.Before(since) {
			out = append(out, c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestServer(snapshots *fakeSnapshotRepo, candles *fakeCandleRepo, rps float64) *httptest.Server {
	gin.SetMode(gin.TestMode)
	logger := testLogger()
	hub := NewHub(logger)
	engine := analytics.NewEngine(candles, 60, logger)
	srv := NewServer(hub, snapshots, candles, engine, "live_updates", []string{"btcusdt_ethusdt"}, logger)
	return httptest.NewServer(NewRouter(srv, rps))
}

func TestAnalyticsEndpoint(t *testing.T) {
	snapshots := &fakeSnapshotRepo{payloads: map[string][]byte{
		"btcusdt_ethusdt": []byte(`{"pair_y":"btcusdt","pair_x":"ethusdt","status":"ok"}`),
	}}
	srv := newTestServer(snapshots, &fakeCandleRepo{candles: map[string][]model.Candle{}}, 100)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/analytics/btcusdt_ethusdt")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var snap model.PairSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if snap.PairY != "btcusdt" || snap.Status != model.StatusOK {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
}

func TestAnalyticsEndpointNotCached(t *testing.T) {
	snapshots := &fakeSnapshotRepo{payloads: map[string][]byte{}}
	srv := newTestServer(snapshots, &fakeCandleRepo{candles: map[string][]model.Candle{}}, 100)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/analytics/btcusdt_ethusdt")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestADFEndpoint(t *testing.T) {
	snapshots := &fakeSnapshotRepo{payloads: map[string][]byte{}}
	srv := newTestServer(snapshots, &fakeCandleRepo{candles: map[string][]model.Candle{}}, 100)
	defer srv.Close()

	// Malformed pair.
	resp, err := http.Get(srv.URL + "/v1/analytics/btcusdt/adf")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed pair, got %d", resp.StatusCode)
	}

	// Valid pair with no data: still 200, all-null result.
	resp, err = http.Get(srv.URL + "/v1/analytics/btcusdt_ethusdt/adf")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var res model.ADFResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.Statistic != nil || res.PValue != nil {
		t.Errorf("Expected null fields, got %+v", res)
	}
}

func TestCandlesEndpoint(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Minute)
	candles := &fakeCandleRepo{candles: map[string][]model.Candle{
		"btcusdt": {
			{Symbol: "btcusdt", OpenTime: now.Add(-2 * time.Minute), Open: 100, Close: 101},
			{Symbol: "btcusdt", OpenTime: now.Add(-1 * time.Minute), Open: 101, Close: 102},
		},
	}}
	srv := newTestServer(&fakeSnapshotRepo{payloads: map[string][]byte{}}, candles, 100)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/candles/BTCUSDT?minutes=10")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var got []model.Candle
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 candles, got %d", len(got))
	}

	// Bad query params.
	for _, q := range []string{"minutes=0", "minutes=abc", "limit=-1"} {
		resp, err := http.Get(srv.URL + "/v1/candles/btcusdt?" + q)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected 400 for %q, got %d", q, resp.StatusCode)
		}
	}
}

func TestLiveRejectsUnknownPair(t *testing.T) {
	srv := newTestServer(&fakeSnapshotRepo{payloads: map[string][]byte{}}, &fakeCandleRepo{candles: map[string][]model.Candle{}}, 100)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/ws/live/dogeusdt_ethusdt")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown pair, got %d", resp.StatusCode)
	}
}

func TestLiveFanOut(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := testLogger()
	hub := NewHub(logger)
	candles := &fakeCandleRepo{candles: map[string][]model.Candle{}}
	engine := analytics.NewEngine(candles, 60, logger)
	server := NewServer(hub, &fakeSnapshotRepo{payloads: map[string][]byte{}}, candles, engine, "live_updates", []string{"btcusdt_ethusdt"}, logger)
	srv := httptest.NewServer(NewRouter(server, 100))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws/live/btcusdt_ethusdt"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	topic := bus.Topic("live_updates", "btcusdt", "ethusdt")

	// The handler attaches after the upgrade completes; wait for it.
	deadline := time.Now().Add(time.Second)
	for hub.Subscribers(topic) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Client never attached to the hub")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Broadcast(topic, []byte(`{"status":"ok"}`))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(payload) != `{"status":"ok"}` {
		t.Errorf("Unexpected payload: %s", payload)
	}
}

func TestRateLimit(t *testing.T) {
	// Zero refill rate: only the burst of 10 requests passes.
	srv := newTestServer(&fakeSnapshotRepo{payloads: map[string][]byte{}}, &fakeCandleRepo{candles: map[string][]model.Candle{}}, 0)
	defer srv.Close()

	var throttled int
	for i := 0; i < 15; i++ {
		resp, err := http.Get(fmt.Sprintf("%s/v1/candles/btcusdt?minutes=10", srv.URL))
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			throttled++
		}
	}
	if throttled != 5 {
		t.Errorf("Expected 5 throttled requests, got %d", throttled)
	}
}
