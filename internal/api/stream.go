package api

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/idle-engine/internal/engine"
)

const (
	maxStreamConns = 4
	writeWait      = 5 * time.Second
	pingInterval   = 15 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamMessage is one frame pushed to stream clients.
type StreamMessage struct {
	Type   string         `json:"type"` // "status" or "event"
	Status *engine.Status `json:"status,omitempty"`
	Event  *engine.Event  `json:"event,omitempty"`
}

// handleStream upgrades to a websocket and pushes engine events as they are
// recorded. The first frame is the current status.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	current := atomic.AddInt32(&s.streamConns, 1)
	defer atomic.AddInt32(&s.streamConns, -1)
	if current > maxStreamConns {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Subscribe before the hello frame so no event falls between the two.
	events, unsubscribe := s.Eng.Subscribe()
	defer unsubscribe()

	status := s.Eng.Snapshot()
	if err := writeFrame(conn, StreamMessage{Type: "status", Status: &status}); err != nil {
		return
	}
	slog.Info("stream client connected", "remote", r.RemoteAddr)

	// Reader: detect client close. Clients send nothing meaningful.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeFrame(conn, StreamMessage{Type: "event", Event: &ev}); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			slog.Info("stream client disconnected", "remote", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
