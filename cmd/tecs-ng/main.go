package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tecs-ng/internal/canbus"
	"tecs-ng/internal/config"
	"tecs-ng/internal/sim"
	"tecs-ng/internal/udp"
)

func main() {
	var configPath string
	var scenarioPath string
	var fast bool
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML config")
	flag.StringVar(&scenarioPath, "scenario", "./scenarios/cruise.yaml", "Path to YAML scenario script")
	flag.BoolVar(&fast, "fast", false, "Run the scenario without wall-clock pacing")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	scen, err := sim.LoadScenario(scenarioPath)
	if err != nil {
		log.Fatalf("scenario load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runner := NewRunner(cfg, scen)

	if cfg.Telemetry.UDP.Enable {
		b, err := udp.NewBroadcaster(cfg.Telemetry.UDP.Dest)
		if err != nil {
			log.Fatalf("udp broadcaster init failed: %v", err)
		}
		defer b.Close()
		runner.SetUDP(b)
		log.Printf("udp telemetry dest=%s interval=%s", cfg.Telemetry.UDP.Dest, cfg.Telemetry.UDP.Interval)
	}

	if cfg.Telemetry.CAN.Enable {
		codec, err := canbus.NewCodec(cfg.Telemetry.CAN.StatusID)
		if err != nil {
			log.Fatalf("can codec init failed: %v", err)
		}
		w, err := canbus.NewSocketCANWriter(ctx, cfg.Telemetry.CAN.Interface)
		if err != nil {
			log.Fatalf("can writer init failed: %v", err)
		}
		defer w.Close()
		runner.SetCAN(w, codec)
		log.Printf("can telemetry iface=%s status_id=0x%X rate=%.0fHz",
			cfg.Telemetry.CAN.Interface, cfg.Telemetry.CAN.StatusID, cfg.Telemetry.CAN.RateHz)
	}

	log.Printf("tecs-ng starting")

	run := runner.Run
	if fast {
		run = runner.RunFast
	}
	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("runner stopped: %v", err)
	}

	log.Printf("tecs-ng stopping")
}
