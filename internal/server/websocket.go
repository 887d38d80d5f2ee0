package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

type client struct {
	conn *websocket.Conn
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		logging.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, done: make(chan struct{})}
	s.addClient(c)
	logging.Debug("WebSocket client connected",
		zap.String("remote_addr", r.RemoteAddr),
		zap.Int("clients", s.ActiveClients()),
	)

	defer func() {
		s.removeClient(c)
		c.close()
		logging.Debug("WebSocket client disconnected", zap.String("remote_addr", r.RemoteAddr))
	}()

	go s.readPump(c)
	s.writePump(c)
}

// readPump discards client messages and keeps the pong deadline fresh.
func (s *Server) readPump(c *client) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump sends a snapshot whenever the state changes.
func (s *Server) writePump(c *client) {
	snapshots := time.NewTicker(SnapshotInterval)
	defer snapshots.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	var last []byte
	send := func() bool {
		payload, err := json.Marshal(s.store.Snapshot())
		if err != nil {
			logging.Warn("Failed to encode snapshot", zap.Error(err))
			return true
		}
		if bytes.Equal(payload, last) {
			return true
		}
		last = payload
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.conn.WriteMessage(websocket.TextMessage, payload) == nil
	}

	if !send() {
		return
	}
	for {
		select {
		case <-c.done:
			return
		case <-snapshots.C:
			if !send() {
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
