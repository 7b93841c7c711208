package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
)

// Hub relays channel events between connected peers. It is transport only:
// events never mutate the message store, and delivery to each peer is
// at-most-once with no ordering guarantee across reconnects.
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	peers map[*peer]struct{}
}

type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes; gorilla allows one writer at a time
}

func (p *peer) send(ev models.ChannelEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteJSON(ev)
}

// NewHub returns an empty relay hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the security middleware upstream.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		peers: make(map[*peer]struct{}),
	}
}

// PeerCount reports the number of connected peers.
func (h *Hub) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// Serve upgrades the request and pumps events until the peer disconnects.
// A malformed frame is logged and skipped; it does not close the connection.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws_upgrade_failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	p := &peer{conn: conn}
	h.mu.Lock()
	h.peers[p] = struct{}{}
	n := len(h.peers)
	h.mu.Unlock()
	logger.Info("ws_peer_connected", "remote", r.RemoteAddr, "peers", n)

	defer func() {
		h.mu.Lock()
		delete(h.peers, p)
		h.mu.Unlock()
		_ = conn.Close()
		logger.Info("ws_peer_disconnected", "remote", r.RemoteAddr)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("ws_read_failed", "remote", r.RemoteAddr, "error", err)
			}
			return
		}
		var ev models.ChannelEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Warn("ws_event_parse_failed", "remote", r.RemoteAddr, "error", err)
			continue
		}
		if !ev.Type.Valid() {
			logger.Warn("ws_event_unknown_type", "remote", r.RemoteAddr, "type", ev.Type)
			continue
		}
		h.relay(p, ev)
	}
}

// relay fans the event out to every peer except the sender.
func (h *Hub) relay(from *peer, ev models.ChannelEvent) {
	h.mu.Lock()
	targets := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		if p != from {
			targets = append(targets, p)
		}
	}
	h.mu.Unlock()
	for _, p := range targets {
		if err := p.send(ev); err != nil {
			logger.Warn("ws_relay_failed", "type", ev.Type, "error", err)
		}
	}
}
