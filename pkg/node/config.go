package node

import (
	"errors"
	"log/slog"
	"time"

	"github.com/lpnswitch/lpnswitch-go/pkg/display"
	"github.com/lpnswitch/lpnswitch-go/pkg/gpio"
	"github.com/lpnswitch/lpnswitch-go/pkg/log"
	"github.com/lpnswitch/lpnswitch-go/pkg/metrics"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// Node errors.
var (
	ErrInvalidConfig = errors.New("invalid node configuration")
	ErrNoStack       = errors.New("node requires stack commands")
)

// Limits accepted by the mesh LPN configuration.
const (
	MinQueueLength = 2
	MaxQueueLength = 128

	MinPollTimeout = time.Second
	MaxPollTimeout = 0x34BBFF * 100 * time.Millisecond
)

// MaxTimerDelay is the longest delay a soft timer can hold.
var MaxTimerDelay = stack.MaxTicks.Duration()

// Config configures a Node.
type Config struct {
	// NamePrefix starts the device name derived at boot.
	// Default: "switch node".
	NamePrefix string

	// LPNQueueLength is the minimum friend queue length requested.
	// Default: 2.
	LPNQueueLength uint32

	// LPNPollTimeout is the poll timeout requested from the friend.
	// Default: 5s.
	LPNPollTimeout time.Duration

	// FriendRetryDelay is the wait before seeking a new friend after the
	// friendship ended. Default: 2s.
	FriendRetryDelay time.Duration

	// RebootDelay is the wait before a reset after factory reset or a
	// failed provisioning. Default: 2s.
	RebootDelay time.Duration

	// BlinkPeriod is the indicator period while being provisioned.
	// Default: 250ms.
	BlinkPeriod time.Duration

	// MaxModels is passed to the mesh library setup. Default: 8.
	MaxModels int

	// EnterLPNOnProvisioned enables LPN right after provisioning completes.
	// By default LPN is only enabled on the next boot or when the last
	// connection closes.
	EnterLPNOnProvisioned bool

	// ResetButtons are sampled at boot. If any is held the node performs a
	// factory reset instead of starting the mesh stack.
	ResetButtons []gpio.Button

	// Indicators blink while the node is being provisioned.
	Indicators []gpio.LED

	// Display receives status lines. Nil disables the display.
	Display display.Sink

	// Logger receives operational logs. Nil disables logging.
	Logger *slog.Logger

	// Trace receives the node trace. Nil disables tracing.
	Trace log.Logger

	// SessionID tags trace events. Default: a new UUID.
	SessionID string

	// Metrics records dispatcher and lifecycle metrics. Nil disables them.
	Metrics *metrics.Collector
}

// DefaultConfig returns a Config with the switch's stock settings.
func DefaultConfig() Config {
	return Config{
		NamePrefix:       "switch node",
		LPNQueueLength:   2,
		LPNPollTimeout:   5 * time.Second,
		FriendRetryDelay: 2 * time.Second,
		RebootDelay:      2 * time.Second,
		BlinkPeriod:      250 * time.Millisecond,
		MaxModels:        8,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.NamePrefix == "" {
		return ErrInvalidConfig
	}
	if c.LPNQueueLength < MinQueueLength || c.LPNQueueLength > MaxQueueLength {
		return ErrInvalidConfig
	}
	if c.LPNPollTimeout < MinPollTimeout || c.LPNPollTimeout > MaxPollTimeout {
		return ErrInvalidConfig
	}
	for _, d := range []time.Duration{c.FriendRetryDelay, c.RebootDelay, c.BlinkPeriod} {
		if d <= 0 || d > MaxTimerDelay {
			return ErrInvalidConfig
		}
	}
	if c.MaxModels <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Display == nil {
		c.Display = display.Nop{}
	}
	if c.Trace == nil {
		c.Trace = log.NoopLogger{}
	}
	if c.SessionID == "" {
		c.SessionID = log.NewSessionID()
	}
}
