package transport

import (
	"context"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hovernet-protocol/hovernet/internal/audit"
	"github.com/hovernet-protocol/hovernet/internal/registry"
	"github.com/hovernet-protocol/hovernet/internal/signals"
	"github.com/hovernet-protocol/hovernet/pkg/hovernet"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	q := hovernet.Question{
		QuestionID:   "q-1",
		Code:         "xs[9]",
		ErrorMessage: "IndexError",
		Language:     "python",
		Bounty:       2,
	}

	env, err := NewEnvelope(TypeQuestion, "asker-1", "coord-1", q)
	if err != nil {
		t.Fatalf("failed to build envelope: %v", err)
	}
	if env.ID == "" {
		t.Error("envelope must carry a fresh id")
	}
	if env.Type != TypeQuestion || env.From != "asker-1" || env.To != "coord-1" {
		t.Errorf("unexpected envelope header: %+v", env)
	}

	var decoded hovernet.Question
	if err := env.DecodePayload(&decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if !reflect.DeepEqual(decoded, q) {
		t.Errorf("payload mismatch: %+v != %+v", decoded, q)
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
}

func TestDialRegistersPeerAndDelivers(t *testing.T) {
	reg := registry.New()
	trail := audit.NewTrail()

	// Server side answers agent pings with pongs.
	serverHandler := HandlerFunc(func(ctx context.Context, env Envelope) (*Envelope, error) {
		if env.Type != TypePing {
			return nil, nil
		}
		var ping hovernet.AgentPing
		if err := env.DecodePayload(&ping); err != nil {
			return nil, err
		}
		pong := signals.BuildPong(ping.PingID, "coord-1", "", "")
		reply, err := NewEnvelope(TypePong, "coord-1", env.From, pong)
		if err != nil {
			return nil, err
		}
		return &reply, nil
	})

	hub := NewHub(serverHandler)
	server := NewServer("coord-1", hub, reg, trail, nil)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	received := make(chan Envelope, 1)
	clientHandler := HandlerFunc(func(ctx context.Context, env Envelope) (*Envelope, error) {
		received <- env
		return nil, nil
	})

	conn, err := Dial(context.Background(), wsURL(srv), "spec-1", "specialist", clientHandler)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// Connecting must register the peer.
	deadline := time.After(2 * time.Second)
	for {
		if peer, err := reg.Get("spec-1"); err == nil {
			if peer.Role != registry.RoleSpecialist {
				t.Errorf("expected specialist role, got %s", peer.Role)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("peer was never registered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	ping := signals.BuildPing("spec-1", "", "")
	env, err := NewEnvelope(TypePing, "spec-1", "coord-1", ping)
	if err != nil {
		t.Fatalf("failed to build ping envelope: %v", err)
	}
	if err := conn.Send(env); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	select {
	case reply := <-received:
		if reply.Type != TypePong {
			t.Fatalf("expected pong envelope, got %s", reply.Type)
		}
		var pong hovernet.AgentPong
		if err := reply.DecodePayload(&pong); err != nil {
			t.Fatalf("failed to decode pong: %v", err)
		}
		if pong.PingID != ping.PingID {
			t.Errorf("pong must echo the ping id: %q != %q", pong.PingID, ping.PingID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no pong received")
	}
}

func TestHubSendToConnectedPeer(t *testing.T) {
	reg := registry.New()
	hub := NewHub(nil)
	server := NewServer("coord-1", hub, reg, audit.NewTrail(), nil)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	received := make(chan Envelope, 1)
	conn, err := Dial(context.Background(), wsURL(srv), "spec-1", "specialist",
		HandlerFunc(func(ctx context.Context, env Envelope) (*Envelope, error) {
			received <- env
			return nil, nil
		}))
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// Wait for the hub to see the connection.
	deadline := time.After(2 * time.Second)
	for !hub.Connected("spec-1") {
		select {
		case <-deadline:
			t.Fatal("peer never connected to hub")
		case <-time.After(10 * time.Millisecond):
		}
	}

	env, _ := NewEnvelope(TypeQuestion, "coord-1", "spec-1", hovernet.Question{QuestionID: "q-9"})
	if err := hub.Send("spec-1", env); err != nil {
		t.Fatalf("hub send failed: %v", err)
	}

	select {
	case got := <-received:
		if got.Type != TypeQuestion || got.ID != env.ID {
			t.Errorf("unexpected envelope: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("envelope never delivered")
	}
}

// Concurrent sends must survive the same agent id reconnecting, which
// replaces and closes the previous peer connection.
func TestHubSendSurvivesReconnect(t *testing.T) {
	reg := registry.New()
	hub := NewHub(nil)
	server := NewServer("coord-1", hub, reg, audit.NewTrail(), nil)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	first, err := Dial(context.Background(), wsURL(srv), "spec-1", "specialist", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer first.Close()

	deadline := time.After(2 * time.Second)
	for !hub.Connected("spec-1") {
		select {
		case <-deadline:
			t.Fatal("peer never connected to hub")
		case <-time.After(10 * time.Millisecond):
		}
	}

	env, _ := NewEnvelope(TypePing, "coord-1", "spec-1", signals.BuildPing("coord-1", "", ""))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					// Errors are fine while the peer churns;
					// a panic is not.
					hub.Send("spec-1", env)
				}
			}
		}()
	}

	for i := 0; i < 5; i++ {
		conn, err := Dial(context.Background(), wsURL(srv), "spec-1", "specialist", nil)
		if err != nil {
			t.Fatalf("redial %d failed: %v", i, err)
		}
		time.Sleep(20 * time.Millisecond)
		conn.Close()
	}

	close(stop)
	wg.Wait()
}

func TestHubSendUnknownPeer(t *testing.T) {
	hub := NewHub(nil)
	env, _ := NewEnvelope(TypeQuestion, "a", "ghost", hovernet.Question{QuestionID: "q"})
	if err := hub.Send("ghost", env); err == nil {
		t.Error("expected error for disconnected peer")
	}
}
