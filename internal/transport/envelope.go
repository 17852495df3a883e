// Package transport moves typed messages between named agents over a
// WebSocket substrate. This layer owns only envelope framing and
// delivery to connected peers; ordering and retry guarantees beyond a
// live connection are not promised here.
package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope message types carried between agents.
const (
	TypeQuestion = "question"
	TypeAnswer   = "answer"
	TypePing     = "agent_ping"
	TypePong     = "agent_pong"
	TypeRegister = "register"
)

// Envelope frames one typed payload between two named agents.
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEnvelope frames payload for delivery from one agent to another.
func NewEnvelope(msgType, from, to string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	return Envelope{
		ID:        uuid.New().String(),
		Type:      msgType,
		From:      from,
		To:        to,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// DecodePayload unmarshals the envelope payload into v.
func (e *Envelope) DecodePayload(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}
	return nil
}

// RegisterPayload announces a connecting peer's identity and role.
type RegisterPayload struct {
	AgentID string `json:"agent_id"`
	Role    string `json:"role"`
	Address string `json:"address,omitempty"`
}
