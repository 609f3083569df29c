package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lpnswitch/lpnswitch-go/pkg/node"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// Display modes.
const (
	DisplayTerminal = "terminal"
	DisplayMQTT     = "mqtt"
	DisplayBoth     = "both"
	DisplayNone     = "none"
)

// Config holds the node configuration. Values come from the defaults, then
// the config file, then any flag given on the command line.
type Config struct {
	ConfigFile string `yaml:"-"`

	Address   string `yaml:"address"`
	StateFile string `yaml:"state_file"`
	LogLevel  string `yaml:"log_level"`
	TraceFile string `yaml:"trace_file"`

	// MetricsAddr is the listen address of the /metrics endpoint. Empty
	// disables it.
	MetricsAddr string `yaml:"metrics_addr"`

	Display    string `yaml:"display"`
	MQTTBroker string `yaml:"mqtt_broker"`
	MQTTTopic  string `yaml:"mqtt_topic"`

	NamePrefix            string        `yaml:"name_prefix"`
	PollTimeout           time.Duration `yaml:"poll_timeout"`
	EnterLPNOnProvisioned bool          `yaml:"enter_lpn_on_provisioned"`

	// Friend makes the simulated mesh offer a friend node.
	Friend bool `yaml:"friend"`

	// TickDuration scales simulated time. Default: one 32768 Hz tick.
	TickDuration time.Duration `yaml:"tick_duration"`

	Interactive bool `yaml:"interactive"`
}

func defaultConfig() Config {
	nodeDefaults := node.DefaultConfig()
	return Config{
		Address:     "00:57:0b:57:0a:0b",
		LogLevel:    "info",
		Display:     DisplayTerminal,
		MQTTTopic:   "lpnswitch",
		NamePrefix:  nodeDefaults.NamePrefix,
		PollTimeout: nodeDefaults.LPNPollTimeout,
		Friend:      true,
		Interactive: true,
	}
}

// parseConfig parses args, loads the config file named by -config and lets
// explicitly set flags override it.
func parseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	flags := defaultConfig()

	fs.StringVar(&flags.ConfigFile, "config", "", "Configuration file path (YAML)")
	fs.StringVar(&flags.Address, "address", flags.Address, "Bluetooth device address")
	fs.StringVar(&flags.StateFile, "state", "", "Node record file (default: in memory)")
	fs.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&flags.TraceFile, "trace", "", "File path for node trace logging (CBOR format)")
	fs.StringVar(&flags.MetricsAddr, "metrics", "", "Listen address for Prometheus metrics, e.g. :9100")
	fs.StringVar(&flags.Display, "display", flags.Display, "Display: terminal, mqtt, both, none")
	fs.StringVar(&flags.MQTTBroker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	fs.StringVar(&flags.MQTTTopic, "mqtt-topic", flags.MQTTTopic, "MQTT topic prefix for display rows")
	fs.StringVar(&flags.NamePrefix, "name", flags.NamePrefix, "Device name prefix")
	fs.DurationVar(&flags.PollTimeout, "poll-timeout", flags.PollTimeout, "LPN poll timeout")
	fs.BoolVar(&flags.EnterLPNOnProvisioned, "lpn-on-provision", false, "Enter LPN right after provisioning")
	fs.BoolVar(&flags.Friend, "friend", flags.Friend, "Offer a friend node in the simulated mesh")
	fs.DurationVar(&flags.TickDuration, "tick", 0, "Wall-clock duration of one soft timer tick")
	fs.BoolVar(&flags.Interactive, "interactive", flags.Interactive, "Run the interactive console")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if flags.ConfigFile == "" {
		return flags, flags.validate()
	}

	cfg := defaultConfig()
	if err := loadConfigFile(flags.ConfigFile, &cfg); err != nil {
		return Config{}, err
	}
	cfg.ConfigFile = flags.ConfigFile

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "address":
			cfg.Address = flags.Address
		case "state":
			cfg.StateFile = flags.StateFile
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "trace":
			cfg.TraceFile = flags.TraceFile
		case "metrics":
			cfg.MetricsAddr = flags.MetricsAddr
		case "display":
			cfg.Display = flags.Display
		case "mqtt-broker":
			cfg.MQTTBroker = flags.MQTTBroker
		case "mqtt-topic":
			cfg.MQTTTopic = flags.MQTTTopic
		case "name":
			cfg.NamePrefix = flags.NamePrefix
		case "poll-timeout":
			cfg.PollTimeout = flags.PollTimeout
		case "lpn-on-provision":
			cfg.EnterLPNOnProvisioned = flags.EnterLPNOnProvisioned
		case "friend":
			cfg.Friend = flags.Friend
		case "tick":
			cfg.TickDuration = flags.TickDuration
		case "interactive":
			cfg.Interactive = flags.Interactive
		}
	})
	return cfg, cfg.validate()
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c Config) validate() error {
	if _, err := stack.ParseBDAddr(c.Address); err != nil {
		return fmt.Errorf("address: %w", err)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	switch c.Display {
	case DisplayTerminal, DisplayNone:
	case DisplayMQTT, DisplayBoth:
		if c.MQTTBroker == "" {
			return errors.New("display " + c.Display + " requires -mqtt-broker")
		}
	default:
		return fmt.Errorf("unknown display: %s", c.Display)
	}
	if c.TickDuration < 0 {
		return fmt.Errorf("tick must not be negative, got %s", c.TickDuration)
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// nodeConfig returns the node settings this configuration selects.
func (c Config) nodeConfig() node.Config {
	cfg := node.DefaultConfig()
	cfg.NamePrefix = c.NamePrefix
	cfg.LPNPollTimeout = c.PollTimeout
	cfg.EnterLPNOnProvisioned = c.EnterLPNOnProvisioned
	return cfg
}
