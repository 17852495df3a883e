// Package signals constructs the correlated ping/pong messages used
// for agent liveness checks. Constructors are pure: they stamp ids and
// timestamps but perform no network or persistence side effects;
// delivery and retry policy belong to the transport.
package signals

import (
	"time"

	"github.com/google/uuid"

	"github.com/hovernet-protocol/hovernet/pkg/hovernet"
)

const (
	// DefaultPurpose is applied when a ping's purpose is left empty.
	DefaultPurpose = "heartbeat"
	// DefaultStatus is applied when a pong's status is left empty.
	DefaultStatus = "ok"
)

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// BuildPing creates a liveness ping with a fresh unique id and the
// current UTC timestamp. An empty purpose defaults to "heartbeat".
func BuildPing(source, purpose, detail string) hovernet.AgentPing {
	if purpose == "" {
		purpose = DefaultPurpose
	}
	return hovernet.AgentPing{
		PingID:    uuid.New().String(),
		Source:    source,
		Purpose:   purpose,
		Detail:    detail,
		CreatedAt: nowISO(),
	}
}

// BuildPong creates the response to a ping, echoing pingID verbatim as
// the correlation key. An empty status defaults to "ok".
func BuildPong(pingID, responder, status, detail string) hovernet.AgentPong {
	if status == "" {
		status = DefaultStatus
	}
	return hovernet.AgentPong{
		PingID:    pingID,
		Responder: responder,
		Status:    status,
		Detail:    detail,
		CreatedAt: nowISO(),
	}
}
