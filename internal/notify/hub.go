package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 5 * time.Second
	pongWait  = 60 * time.Second
)

// Hub keeps one websocket per user and pushes events to it.
type Hub struct {
	upgrader websocket.Upgrader
	logger   Logger

	mu    sync.RWMutex
	conns map[string]*websocket.Conn
	wmu   map[string]*sync.Mutex
}

// NewHub constructs a hub.
func NewHub(logger Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger,
		conns:    make(map[string]*websocket.Conn),
		wmu:      make(map[string]*sync.Mutex),
	}
}

// ServeWS upgrades the request and registers the connection for userID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.errorf("ws upgrade failed for %s: %v", userID, err)
		return
	}

	h.mu.Lock()
	if old, ok := h.conns[userID]; ok {
		_ = old.Close()
	}
	h.conns[userID] = conn
	if _, ok := h.wmu[userID]; !ok {
		h.wmu[userID] = &sync.Mutex{}
	}
	h.mu.Unlock()

	go h.readLoop(userID, conn)
}

func (h *Hub) readLoop(userID string, conn *websocket.Conn) {
	defer func() {
		conn.Close()
		h.mu.Lock()
		if h.conns[userID] == conn {
			delete(h.conns, userID)
			delete(h.wmu, userID)
		}
		h.mu.Unlock()
	}()

	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		if mt == websocket.TextMessage && strings.EqualFold(strings.TrimSpace(string(msg)), "ping") {
			h.safeWrite(userID, func(c *websocket.Conn) error {
				return c.WriteMessage(websocket.TextMessage, []byte("pong"))
			})
		}
	}
}

// Connected reports whether userID has an open connection.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[userID]
	return ok
}

// Notify pushes ev to the user's connection. Offline users are skipped.
func (h *Hub) Notify(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if !h.Connected(ev.UserID) {
		return nil
	}
	return h.safeWrite(ev.UserID, func(conn *websocket.Conn) error {
		return conn.WriteMessage(websocket.TextMessage, payload)
	})
}

func (h *Hub) safeWrite(userID string, writer func(*websocket.Conn) error) error {
	h.mu.RLock()
	conn := h.conns[userID]
	mu := h.wmu[userID]
	h.mu.RUnlock()
	if conn == nil || mu == nil {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := writer(conn); err != nil {
		h.errorf("ws write to %s failed: %v", userID, err)
		return err
	}
	return nil
}

func (h *Hub) errorf(format string, args ...interface{}) {
	if h.logger != nil {
		h.logger.Errorf(format, args...)
	}
}
