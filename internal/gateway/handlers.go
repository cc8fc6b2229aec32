package gateway

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mzare-q/pairstream/internal/analytics"
	"github.com/mzare-q/pairstream/internal/bus"
	"github.com/mzare-q/pairstream/internal/repository"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server wires the hub and the read endpoints.
type Server struct {
	hub         *Hub
	snapshots   repository.SnapshotRepository
	candles     repository.CandleRepository
	engine      *analytics.Engine
	topicPrefix string
	pairs       map[string]struct{}
	logger      *slog.Logger
}

// NewServer creates the gateway server. pairKeys lists the configured pair
// identifiers ("y_x"); websocket subscriptions outside that set are
// rejected since no publisher feeds them.
func NewServer(hub *Hub, snapshots repository.SnapshotRepository, candles repository.CandleRepository, engine *analytics.Engine, topicPrefix string, pairKeys []string, logger *slog.Logger) *Server {
	pairs := make(map[string]struct{}, len(pairKeys))
	for _, k := range pairKeys {
		pairs[k] = struct{}{}
	}
	return &Server{
		hub:         hub,
		snapshots:   snapshots,
		candles:     candles,
		engine:      engine,
		topicPrefix: topicPrefix,
		pairs:       pairs,
		logger:      logger,
	}
}

// handleLive upgrades the connection and attaches it to the pair topic.
func (s *Server) handleLive(c *gin.Context) {
	pair := c.Param("pair")
	if _, ok := s.pairs[pair]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown pair: " + pair})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	y, x, _ := strings.Cut(pair, "_")
	client := newClient(s.hub, bus.Topic(s.topicPrefix, y, x), conn)
	s.hub.attach(client)

	go client.writePump()
	go client.readPump()
}

// handleAnalytics serves the most recently published snapshot for a pair.
func (s *Server) handleAnalytics(c *gin.Context) {
	pair := c.Param("pair")

	payload, err := s.snapshots.Latest(pair)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if payload == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot cached yet for " + pair})
		return
	}

	c.Data(http.StatusOK, "application/json", payload)
}

// handleADF runs the stationarity diagnostic on a pair's current spread.
func (s *Server) handleADF(c *gin.Context) {
	pair := c.Param("pair")

	y, x, ok := strings.Cut(pair, "_")
	if !ok || y == "" || x == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pair must be <y>_<x>"})
		return
	}

	c.JSON(http.StatusOK, s.engine.SpreadADF(y, x))
}

// handleCandles serves recent candles for one symbol.
func (s *Server) handleCandles(c *gin.Context) {
	symbol := strings.ToLower(c.Param("symbol"))

	minutes, err := strconv.Atoi(c.DefaultQuery("minutes", "120"))
	if err != nil || minutes <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid minutes"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	since := time.Now().UTC().Add(-time.Duration(minutes) * time.Minute)
	candles, err := s.candles.Since(symbol, since, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, candles)
}
