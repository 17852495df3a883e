package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hovernet-protocol/hovernet/internal/audit"
	"github.com/hovernet-protocol/hovernet/internal/config"
	"github.com/hovernet-protocol/hovernet/internal/coordinator"
	"github.com/hovernet-protocol/hovernet/internal/gateway"
	"github.com/hovernet-protocol/hovernet/internal/hoapi"
	"github.com/hovernet-protocol/hovernet/internal/inference"
	"github.com/hovernet-protocol/hovernet/internal/registry"
	"github.com/hovernet-protocol/hovernet/internal/router"
	"github.com/hovernet-protocol/hovernet/internal/specialist"
	"github.com/hovernet-protocol/hovernet/internal/transport"
	"github.com/hovernet-protocol/hovernet/internal/triage"
)

func main() {
	role := flag.String("role", "coordinator", "Agent role: coordinator or specialist")
	agentID := flag.String("id", "", "Agent ID (overrides AGENT_ID)")
	addr := flag.String("addr", "", "Listen address (overrides AGENT_LISTEN_ADDR, coordinator only)")
	coordURL := flag.String("coordinator", "", "Coordinator base URL (specialist only)")
	flag.Parse()

	cfg := config.FromEnv()
	if *agentID != "" {
		cfg.Agent.ID = *agentID
	}
	if *addr != "" {
		cfg.Agent.ListenAddr = *addr
	}

	switch *role {
	case "coordinator":
		runCoordinator(cfg)
	case "specialist":
		runSpecialist(cfg, *coordURL)
	default:
		log.Fatalf("unknown role %q (want coordinator or specialist)", *role)
	}
}

func runCoordinator(cfg *config.Config) {
	classifier := triage.NewClassifier(cfg.Triage, nil)
	qaClient := hoapi.NewClientFromConfig(cfg.Context)
	contextBuilder := hoapi.NewContextBuilder(cfg.Context, qaClient)
	gw := gateway.NewClient(cfg.Gateway)
	rt := router.New(cfg.Gateway, contextBuilder, gw)
	reg := registry.New()
	trail := audit.NewTrail()

	coord := coordinator.New(cfg, classifier, rt, reg, trail)
	hub := transport.NewHub(coord)
	coord.SetHub(hub)

	server := transport.NewServer(cfg.Agent.ID, hub, reg, trail, coord.Ask)

	coord.Start()
	defer coord.Stop()

	log.Printf("Hovernet coordinator starting...")
	log.Printf("   ID: %s", cfg.Agent.ID)
	log.Printf("   Listening on: %s", cfg.Agent.ListenAddr)
	log.Printf("   Heartbeat: enabled=%v period=%s", cfg.Agent.HeartbeatEnabled, cfg.Agent.HeartbeatPeriod)
	log.Printf("   AI Gateway: enabled=%v primary=%s", cfg.Gateway.Enabled, cfg.Gateway.PrimaryModel)
	log.Printf("   Context pull: enabled=%v api=%s", cfg.Context.PullEnabled, cfg.Context.APIBaseURL)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start(cfg.Agent.ListenAddr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatalf("Server error: %v", err)
	case <-stop:
		log.Println("Shutting down gracefully...")
	}
}

func runSpecialist(cfg *config.Config, coordURL string) {
	if coordURL == "" {
		coordURL = "ws://127.0.0.1:8080/api/v1/ws"
	}

	classifier := triage.NewClassifier(cfg.Triage, nil)
	hints := inference.NewHintClient(cfg.Inference)
	spec := specialist.New(cfg.Agent.ID, classifier, hints)

	log.Printf("Hovernet specialist starting...")
	log.Printf("   ID: %s", cfg.Agent.ID)
	log.Printf("   Coordinator: %s", coordURL)
	log.Printf("   Remote inference: enabled=%v model=%s", cfg.Inference.Enabled, cfg.Inference.Model)

	conn, err := transport.Dial(context.Background(), coordURL, cfg.Agent.ID, "specialist", spec)
	if err != nil {
		log.Fatalf("Failed to reach coordinator: %v", err)
	}
	defer conn.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-conn.Done():
		log.Fatalf("Coordinator connection lost")
	case <-stop:
		log.Println("Shutting down gracefully...")
	}
}
