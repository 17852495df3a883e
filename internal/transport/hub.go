package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send protocol-level pings with this period. Must be less than
	// pongWait. These are WebSocket control frames, distinct from the
	// application-level AgentPing envelopes.
	pingPeriod = (pongWait * 9) / 10

	// Maximum envelope size allowed from a peer.
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Peers are other agents, not browsers.
		return true
	},
}

// Handler consumes an inbound envelope and may return a reply to send
// back to the originating peer.
type Handler interface {
	HandleEnvelope(ctx context.Context, env Envelope) (*Envelope, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, env Envelope) (*Envelope, error)

// HandleEnvelope calls f.
func (f HandlerFunc) HandleEnvelope(ctx context.Context, env Envelope) (*Envelope, error) {
	return f(ctx, env)
}

// Hub tracks connected peers and delivers envelopes to them by agent
// id. One connection per agent id; a reconnect replaces the old one.
type Hub struct {
	handler Handler
	peers   map[string]*peerConn
	mu      sync.RWMutex
}

// NewHub creates a hub dispatching inbound envelopes to handler.
func NewHub(handler Handler) *Hub {
	return &Hub{
		handler: handler,
		peers:   make(map[string]*peerConn),
	}
}

type peerConn struct {
	agentID string
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub

	mu     sync.Mutex
	closed bool
}

// Send delivers an envelope to a connected peer.
func (h *Hub) Send(agentID string, env Envelope) error {
	h.mu.RLock()
	peer, ok := h.peers[agentID]
	h.mu.RUnlock()
	if !ok {
		return errors.New("peer not connected: " + agentID)
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return peer.enqueue(raw)
}

// Connected reports whether a peer currently has a live connection.
func (h *Hub) Connected(agentID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.peers[agentID]
	return ok
}

// PeerCount returns the number of connected peers.
func (h *Hub) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

func (h *Hub) attach(agentID string, conn *websocket.Conn) *peerConn {
	peer := &peerConn{
		agentID: agentID,
		conn:    conn,
		send:    make(chan []byte, 64),
		hub:     h,
	}

	h.mu.Lock()
	if old, ok := h.peers[agentID]; ok {
		old.close()
	}
	h.peers[agentID] = peer
	h.mu.Unlock()

	log.Printf("[transport] peer connected: %s", agentID)
	return peer
}

func (h *Hub) detach(peer *peerConn) {
	h.mu.Lock()
	if h.peers[peer.agentID] == peer {
		delete(h.peers, peer.agentID)
	}
	h.mu.Unlock()
	peer.close()
	log.Printf("[transport] peer disconnected: %s", peer.agentID)
}

// enqueue queues raw for the write pump. The channel is only ever
// written and closed under p.mu, so a send can never race the close
// that a reconnect or disconnect triggers from another goroutine.
func (p *peerConn) enqueue(raw []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("peer connection closed: " + p.agentID)
	}
	select {
	case p.send <- raw:
		return nil
	default:
		return errors.New("peer send buffer full: " + p.agentID)
	}
}

func (p *peerConn) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.send)
	p.mu.Unlock()
	p.conn.Close()
}

// readPump dispatches inbound envelopes to the hub's handler and
// queues any reply back to the same peer.
func (p *peerConn) readPump() {
	defer p.hub.detach(p)

	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[transport] read error from %s: %v", p.agentID, err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("[transport] dropping malformed envelope from %s: %v", p.agentID, err)
			continue
		}

		if p.hub.handler == nil {
			continue
		}
		reply, err := p.hub.handler.HandleEnvelope(context.Background(), env)
		if err != nil {
			log.Printf("[transport] handler failed for %s envelope %s: %v", env.Type, env.ID, err)
			continue
		}
		if reply != nil {
			if raw, err := json.Marshal(reply); err == nil {
				if err := p.enqueue(raw); err != nil {
					log.Printf("[transport] dropping reply to %s: %v", p.agentID, err)
				}
			}
		}
	}
}

// writePump drains the send queue and keeps the connection alive with
// control-frame pings.
func (p *peerConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case raw, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
