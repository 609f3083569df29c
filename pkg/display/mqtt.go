package display

import (
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher is the part of mqtt.Client the MQTT sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTConfig configures the MQTT sink.
type MQTTConfig struct {
	// TopicPrefix is prepended to the row name, e.g. "lpnswitch/0057" gives
	// "lpnswitch/0057/display/status".
	TopicPrefix string

	// QoS for published lines. Default: 1.
	QoS byte

	// Timeout bounds how long Print waits for the broker. Default: 2s.
	Timeout time.Duration

	// Logger receives publish failures. Nil disables logging.
	Logger *slog.Logger
}

// MQTT publishes every row as a retained message so late subscribers see
// the current display.
type MQTT struct {
	pub Publisher
	cfg MQTTConfig
}

// NewMQTT creates an MQTT sink.
func NewMQTT(pub Publisher, cfg MQTTConfig) *MQTT {
	if cfg.QoS == 0 {
		cfg.QoS = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "lpnswitch"
	}
	return &MQTT{pub: pub, cfg: cfg}
}

// Topic returns the topic a row is published on.
func (m *MQTT) Topic(row Row) string {
	return fmt.Sprintf("%s/display/%s", m.cfg.TopicPrefix, row)
}

// Print publishes text on the row's topic.
func (m *MQTT) Print(row Row, text string) {
	token := m.pub.Publish(m.Topic(row), m.cfg.QoS, true, []byte(text))
	if !token.WaitTimeout(m.cfg.Timeout) {
		m.debugLog("display publish timed out", "row", row.String())
		return
	}
	if err := token.Error(); err != nil {
		m.debugLog("display publish failed", "row", row.String(), "error", err)
	}
}

func (m *MQTT) debugLog(msg string, args ...any) {
	if m.cfg.Logger != nil {
		m.cfg.Logger.Warn(msg, args...)
	}
}

// DialMQTT connects a client to broker with auto-reconnect enabled.
func DialMQTT(broker, clientID string, logger *slog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		if logger != nil {
			logger.Warn("MQTT connection lost", "broker", broker, "error", err)
		}
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		if logger != nil {
			logger.Info("connected to MQTT broker", "broker", broker)
		}
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", broker, token.Error())
	}
	return client, nil
}

// Compile-time interface satisfaction check.
var _ Sink = (*MQTT)(nil)
