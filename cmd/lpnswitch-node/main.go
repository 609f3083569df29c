// Command lpnswitch-node runs the light switch node on a simulated mesh stack.
//
// The node boots, beacons for a provisioner, joins the network and runs as
// a low power node, exactly as it would on the board. The simulated stack
// stands in for the radio: provisioning, GATT connections, friendship and
// the board buttons are driven from the interactive console.
//
// Usage:
//
//	lpnswitch-node [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-address string       Bluetooth device address (default "00:57:0b:57:0a:0b")
//	-state string         Node record file (default: in memory)
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-trace string         File path for node trace logging (CBOR format)
//	-metrics string       Listen address for Prometheus metrics, e.g. :9100
//	-display string       Display: terminal, mqtt, both, none (default "terminal")
//	-mqtt-broker string   MQTT broker URL, e.g. tcp://localhost:1883
//	-mqtt-topic string    MQTT topic prefix for display rows (default "lpnswitch")
//	-name string          Device name prefix (default "switch node")
//	-poll-timeout dur     LPN poll timeout (default 5s)
//	-lpn-on-provision     Enter LPN right after provisioning
//	-friend               Offer a friend node in the simulated mesh (default true)
//	-tick dur             Wall-clock duration of one soft timer tick
//	-interactive          Run the interactive console (default true)
//
// Examples:
//
//	# Run with a persistent node record and a trace file
//	lpnswitch-node -state switch.json -trace switch.cbor
//
//	# Publish the display over MQTT and expose metrics
//	lpnswitch-node -display both -mqtt-broker tcp://localhost:1883 -metrics :9100
//
//	# Headless, with all settings from a file
//	lpnswitch-node -config /etc/lpnswitch/node.yaml -interactive=false
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lpnswitch/lpnswitch-go/cmd/lpnswitch-node/interactive"
	"github.com/lpnswitch/lpnswitch-go/pkg/display"
	swlog "github.com/lpnswitch/lpnswitch-go/pkg/log"
	"github.com/lpnswitch/lpnswitch-go/pkg/metrics"
	"github.com/lpnswitch/lpnswitch-go/pkg/node"
	"github.com/lpnswitch/lpnswitch-go/pkg/persistence"
	"github.com/lpnswitch/lpnswitch-go/pkg/sim"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

func main() {
	cfg, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, _ := stack.ParseBDAddr(cfg.Address)
	level, _ := cfg.level()

	var store persistence.Store = &persistence.MemoryStore{}
	if cfg.StateFile != "" {
		store = persistence.NewFileStore(cfg.StateFile)
	}

	// The logger has to exist before the stack, but in interactive mode it
	// must write through the console. Route it through a switchable writer.
	out := &switchWriter{w: os.Stdout}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))

	stk := sim.New(sim.Config{
		Addr:            addr,
		Store:           store,
		TickDuration:    cfg.TickDuration,
		FriendAvailable: cfg.Friend,
		Firmware:        stack.Boot{Major: 1},
		OnReset: func(mode stack.ResetMode) {
			logger.Info("node reset", "mode", mode.String())
		},
		Logger: logger.With("component", "stack"),
	})
	defer stk.Close()

	nodeCfg := cfg.nodeConfig()
	nodeCfg.ResetButtons = stk.Buttons()
	nodeCfg.Indicators = stk.LEDs()
	nodeCfg.Logger = logger.With("component", "node")

	var traceFile *swlog.FileLogger
	if cfg.TraceFile != "" {
		f, err := swlog.NewFileLogger(cfg.TraceFile)
		if err != nil {
			return fmt.Errorf("failed to create trace logger: %w", err)
		}
		defer f.Close()
		traceFile = f
	}
	nodeCfg.Trace = traceSink(traceFile, logger, level)

	if cfg.MetricsAddr != "" {
		collector := metrics.New()
		nodeCfg.Metrics = collector
		srv := serveMetrics(cfg.MetricsAddr, collector, logger)
		defer srv.Close()
	}

	var sinks display.Multi
	var terminal *display.Terminal
	if cfg.Display == DisplayTerminal || cfg.Display == DisplayBoth {
		terminal = display.NewTerminal(out)
		sinks = append(sinks, terminal)
	}
	if cfg.Display == DisplayMQTT || cfg.Display == DisplayBoth {
		client, err := display.DialMQTT(cfg.MQTTBroker, "lpnswitch-"+stk.DeviceUUID().String(), logger)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		sinks = append(sinks, display.NewMQTT(client, display.MQTTConfig{
			TopicPrefix: fmt.Sprintf("%s/%02x%02x", cfg.MQTTTopic, addr[1], addr[0]),
			Logger:      logger.With("component", "display"),
		}))
	}
	if len(sinks) > 0 {
		nodeCfg.Display = sinks
	}

	n, err := node.New(stk, nodeCfg)
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}

	var console *interactive.Console
	if cfg.Interactive {
		opts := interactive.Options{}
		if terminal != nil {
			opts.Panel = terminal.Panel
		}
		console, err = interactive.New(stk, n, opts)
		if err != nil {
			return err
		}
		out.set(console.Stdout())
	}

	logger.Info("switch node starting",
		"address", addr.String(),
		"uuid", stk.DeviceUUID().String(),
		"lpn_on_provision", cfg.EnterLPNOnProvisioned)

	disp := node.NewDispatcher(stk, n)
	errCh := make(chan error, 1)
	stk.Start()
	go func() { errCh <- disp.Run(ctx) }()

	if console != nil {
		go console.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("dispatcher stopped: %w", err)
		}
	}

	cancel()
	stk.Close()

	logger.Info("switch node stopped",
		"dispatched", disp.Dispatched(),
		"filtered", disp.Filtered(),
		"dropped", stk.Dropped())
	return nil
}

// traceSink picks the trace destination: the trace file, the debug log, or
// both. It returns nil when neither is enabled.
func traceSink(file *swlog.FileLogger, logger *slog.Logger, level slog.Level) swlog.Logger {
	var sinks []swlog.Logger
	if file != nil {
		sinks = append(sinks, file)
	}
	if level <= slog.LevelDebug {
		sinks = append(sinks, swlog.NewSlogAdapter(logger.With("component", "trace")))
	}
	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	default:
		return swlog.NewMultiLogger(sinks...)
	}
}

func serveMetrics(addr string, collector *metrics.Collector, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

// switchWriter is an io.Writer whose destination can change once the
// console is up.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}
