package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is an outbound peer connection, used by an agent that dials
// into another agent's transport endpoint.
type Conn struct {
	agentID string
	conn    *websocket.Conn
	handler Handler

	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// Dial connects to a peer's transport endpoint, identifying this
// agent by id and role. handler receives envelopes the peer pushes
// down the connection; it may be nil for send-only use.
func Dial(ctx context.Context, endpoint, agentID, role string, handler Handler) (*Conn, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid transport endpoint: %w", err)
	}
	query := u.Query()
	query.Set("agent_id", agentID)
	query.Set("role", role)
	u.RawQuery = query.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial transport: %w", err)
	}

	c := &Conn{
		agentID: agentID,
		conn:    ws,
		handler: handler,
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Send delivers an envelope to the peer.
func (c *Conn) Send(env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

// Close tears down the connection.
func (c *Conn) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.conn.Close()
}

// Done is closed when the read loop exits.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) readLoop() {
	defer c.once.Do(func() { close(c.done) })

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("[transport] dropping malformed envelope: %v", err)
			continue
		}
		if c.handler == nil {
			continue
		}
		reply, err := c.handler.HandleEnvelope(context.Background(), env)
		if err != nil {
			log.Printf("[transport] handler failed for %s envelope %s: %v", env.Type, env.ID, err)
			continue
		}
		if reply != nil {
			if err := c.Send(*reply); err != nil {
				log.Printf("[transport] failed to send reply: %v", err)
			}
		}
	}
}
