package main

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	swlog "github.com/lpnswitch/lpnswitch-go/pkg/log"
)

func parseArgs(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("lpnswitch-node", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return parseConfig(fs, args)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "node.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseArgs(t)
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg != defaultConfig() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if cfg.PollTimeout != 5*time.Second {
		t.Errorf("PollTimeout = %v, want 5s", cfg.PollTimeout)
	}
}

func TestParseConfigFlags(t *testing.T) {
	cfg, err := parseArgs(t,
		"-address", "aa:bb:cc:dd:ee:ff",
		"-display", "none",
		"-poll-timeout", "10s",
		"-lpn-on-provision",
		"-interactive=false",
	)
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.Address != "aa:bb:cc:dd:ee:ff" || cfg.Display != DisplayNone {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.PollTimeout != 10*time.Second || !cfg.EnterLPNOnProvisioned || cfg.Interactive {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestParseConfigFileThenFlags(t *testing.T) {
	path := writeConfigFile(t, `
address: "11:22:33:44:55:66"
log_level: debug
display: mqtt
mqtt_broker: tcp://broker:1883
poll_timeout: 30s
friend: false
name_prefix: hallway
`)

	cfg, err := parseArgs(t, "-config", path, "-name", "kitchen")
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile)
	}
	if cfg.Address != "11:22:33:44:55:66" || cfg.LogLevel != "debug" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Display != DisplayMQTT || cfg.MQTTBroker != "tcp://broker:1883" {
		t.Errorf("display = %s broker = %s", cfg.Display, cfg.MQTTBroker)
	}
	if cfg.PollTimeout != 30*time.Second || cfg.Friend {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.NamePrefix != "kitchen" {
		t.Errorf("NamePrefix = %q, flag should win over file", cfg.NamePrefix)
	}
	// Unset in both places.
	if cfg.MQTTTopic != "lpnswitch" || !cfg.Interactive {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad address", []string{"-address", "nope"}, "address"},
		{"bad level", []string{"-log-level", "loud"}, "invalid log level"},
		{"unknown display", []string{"-display", "oled"}, "unknown display"},
		{"mqtt without broker", []string{"-display", "mqtt"}, "requires -mqtt-broker"},
		{"negative tick", []string{"-tick", "-1ms"}, "tick"},
		{"missing file", []string{"-config", "/nonexistent/node.yaml"}, "read config file"},
		{"unknown flag", []string{"-warp"}, "warp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseArgs(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestParseConfigBadYAML(t *testing.T) {
	path := writeConfigFile(t, "poll_timeout: [1, 2\n")
	if _, err := parseArgs(t, "-config", path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestNodeConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.NamePrefix = "porch"
	cfg.EnterLPNOnProvisioned = true

	nc := cfg.nodeConfig()
	if nc.NamePrefix != "porch" || !nc.EnterLPNOnProvisioned {
		t.Errorf("node config = %+v", nc)
	}
	if err := nc.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestTraceSink(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if got := traceSink(nil, logger, slog.LevelInfo); got != nil {
		t.Errorf("traceSink = %T, want nil", got)
	}
	if _, ok := traceSink(nil, logger, slog.LevelDebug).(*swlog.SlogAdapter); !ok {
		t.Error("debug level should trace to the log")
	}

	f, err := swlog.NewFileLogger(filepath.Join(t.TempDir(), "trace.cbor"))
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer f.Close()

	if got := traceSink(f, logger, slog.LevelInfo); got != swlog.Logger(f) {
		t.Errorf("traceSink = %T, want the file logger", got)
	}
	if _, ok := traceSink(f, logger, slog.LevelDebug).(*swlog.MultiLogger); !ok {
		t.Error("file and debug level should fan out")
	}
}
