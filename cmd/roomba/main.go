// Command roomba runs the heat-seeking roomba controller: it wakes the
// base over serial, connects the MQTT steering channel, and drives the
// behavior arbitration loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/koster51/heat-seaking-roomba/internal/config"
	"github.com/koster51/heat-seaking-roomba/internal/eventlog"
	"github.com/koster51/heat-seaking-roomba/internal/log"
	"github.com/koster51/heat-seaking-roomba/pkg/behavior"
	"github.com/koster51/heat-seaking-roomba/pkg/control"
	"github.com/koster51/heat-seaking-roomba/pkg/oi"
	"github.com/koster51/heat-seaking-roomba/pkg/sensors"
	"github.com/koster51/heat-seaking-roomba/pkg/teleop"
	"github.com/koster51/heat-seaking-roomba/pkg/web"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to configs/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	if err := run(cfg); err != nil && err != context.Canceled {
		log.Error("controller exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown requested")
		cancel()
	}()

	// Base link and boot sequence: Safe mode, link beep, then one full
	// stop so the base can never move on power-up.
	conn, err := oi.Open(cfg.Serial.Port, cfg.Serial.Baud)
	if err != nil {
		return fmt.Errorf("open base link: %w", err)
	}
	defer conn.Close()

	if err := conn.Wake(); err != nil {
		return fmt.Errorf("wake base: %w", err)
	}
	if err := conn.Stop(); err != nil {
		log.Warn("post-boot stop write failed", "error", err)
	}
	log.Info("base awake", "port", cfg.Serial.Port)

	reader, err := buildSensors(cfg.Sensors)
	if err != nil {
		return err
	}

	// Mission log (optional).
	var (
		store    *eventlog.Store
		recorder *eventlog.Recorder
		sink     behavior.EventSink
	)
	if cfg.EventLog.Path != "" {
		store, err = eventlog.Open(cfg.EventLog.Path)
		if err != nil {
			return fmt.Errorf("open mission log: %w", err)
		}
		defer store.Close()
		recorder = eventlog.NewRecorder(store)
		defer recorder.Close()
		sink = recorder
	}

	// Steering channel.
	tele, err := teleop.New(teleop.Config{
		Broker:   cfg.MQTT.Broker,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		Topic:    cfg.MQTT.Topic,
		ClientID: cfg.MQTT.ClientID,
	})
	if err != nil {
		return err
	}
	if err := tele.Connect(ctx); err != nil {
		return fmt.Errorf("connect steering channel: %w", err)
	}
	defer tele.Close()

	chimes := &oi.Chimes{Conn: conn}
	chimes.Connected()

	machine := behavior.NewMachine(conn, reader, chimes, sink, cfg.Control.SearchTimeout)
	loop := control.NewLoop(machine, tele, conn, sink, cfg.Control.TickPeriod, cfg.Control.CoolDown)

	// Dashboard.
	if cfg.Web.Enabled {
		srv := web.NewServer(cfg.Web.Addr, store, tele.Inject)
		loop.SetOnTick(srv.SetStatus)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error("dashboard server stopped", "error", err)
			}
		}()
		defer srv.Shutdown()
	}

	log.Info("listening for steering commands", "topic", cfg.MQTT.Topic)
	return loop.Run(ctx)
}

// buildSensors wires the detection reader. Hardware thermal/range
// drivers are platform integrations behind the sensors interfaces;
// the sim backend runs the controller on a bench without them.
func buildSensors(cfg config.Sensors) (*sensors.Reader, error) {
	switch cfg.Mode {
	case "sim":
		return sensors.NewReader(
			sensors.NewSimThermal(21.0),
			sensors.NewSimRange(),
			cfg.HumanTempC,
			cfg.ObstacleMM,
		), nil
	case "hardware":
		return nil, fmt.Errorf("sensors.mode 'hardware' requires platform drivers implementing sensors.ThermalCamera and sensors.RangeFinder")
	default:
		return nil, fmt.Errorf("unknown sensors.mode %q", cfg.Mode)
	}
}
