package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lpnswitch/lpnswitch-go/pkg/gpio"
	"github.com/lpnswitch/lpnswitch-go/pkg/persistence"
	"github.com/lpnswitch/lpnswitch-go/pkg/softtimer"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// DefaultQueueSize is the event queue depth used when Config.QueueSize is 0.
const DefaultQueueSize = 64

// DefaultFriendAddress is the unicast address of the simulated friend node.
const DefaultFriendAddress stack.Address = 0x0001

// deviceNamespace seeds the name-based device UUIDs.
var deviceNamespace = uuid.MustParse("6c706e73-7769-7463-6800-000000000000")

// Config configures a simulated stack.
type Config struct {
	// Addr is the Bluetooth device address. Default: 00:57:0b:57:0a:0b.
	Addr stack.BDAddr

	// Store persists the node record. Default: an in-memory store.
	Store persistence.Store

	// TickDuration is the wall-clock length of one soft timer tick.
	// Zero runs on the real 32768 Hz clock.
	TickDuration time.Duration

	// QueueSize is the event queue depth. Default: DefaultQueueSize.
	QueueSize int

	// FriendAvailable makes friendship establishment succeed.
	FriendAvailable bool

	// FriendAddress is reported when a friendship is established.
	// Default: DefaultFriendAddress.
	FriendAddress stack.Address

	// Firmware is reported in every Boot event.
	Firmware stack.Boot

	// OnReset, if set, is called for every SystemReset before the reboot.
	OnReset func(mode stack.ResetMode)

	// Logger receives operational logs. Nil disables logging.
	Logger *slog.Logger
}

// Stack is a simulated mesh stack. Commands are meant to be issued from the
// dispatch goroutine; the injection methods are safe to call from anywhere.
type Stack struct {
	cfg Config

	events  chan stack.Event
	signals *gpio.SignalQueue
	timers  *softtimer.Multiplexer
	done    chan struct{}

	pb0, pb1 *gpio.SimPin
	edge     gpio.Producer
	leds     [2]*gpio.SimLED

	deviceUUID uuid.UUID

	mu        sync.Mutex
	closed    bool
	dropped   int
	mesh      meshState
	attrs     map[stack.Characteristic][]byte
	conns     map[stack.Handle]stack.BDAddr
	responses []WriteResponse
	resets    []stack.ResetMode
}

// meshState is the volatile state lost on every reset.
type meshState struct {
	nodeInit    bool
	provisioned bool
	address     stack.Address
	ivIndex     uint32
	beaconing   stack.Bearer
	clients     bool
	meshLib     bool

	lpnInit      bool
	queueLength  uint32
	pollTimeout  uint32
	friend       stack.Address
}

// WriteResponse is a recorded SendUserWriteResponse call.
type WriteResponse struct {
	Connection     stack.Handle
	Characteristic stack.Characteristic
	Status         stack.Result
}

// Compile-time interface satisfaction check.
var _ stack.Stack = (*Stack)(nil)

// New creates a simulated stack. Call Start to queue the first Boot.
func New(cfg Config) *Stack {
	if cfg.Addr == (stack.BDAddr{}) {
		cfg.Addr = stack.BDAddr{0x0b, 0x0a, 0x57, 0x0b, 0x57, 0x00}
	}
	if cfg.Store == nil {
		cfg.Store = &persistence.MemoryStore{}
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.FriendAddress == 0 {
		cfg.FriendAddress = DefaultFriendAddress
	}

	s := &Stack{
		cfg:        cfg,
		events:     make(chan stack.Event, cfg.QueueSize),
		signals:    gpio.NewSignalQueue(),
		done:       make(chan struct{}),
		pb0:        gpio.NewSimPin(true),
		pb1:        gpio.NewSimPin(true),
		leds:       [2]*gpio.SimLED{{}, {}},
		deviceUUID: uuid.NewSHA1(deviceNamespace, cfg.Addr[:]),
		attrs:      make(map[stack.Characteristic][]byte),
		conns:      make(map[stack.Handle]stack.BDAddr),
	}
	s.edge = gpio.Producer{Pin: s.pb0, Queue: s.signals}
	s.timers = softtimer.NewMultiplexer(softtimer.Config{TickDuration: cfg.TickDuration}, s.timerElapsed)
	return s
}

// Start queues the power-on Boot event.
func (s *Stack) Start() {
	s.push(s.cfg.Firmware)
}

// Close stops the stack. Pending and later WaitEvent calls return
// stack.ErrStopped.
func (s *Stack) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.timers.Close()
	close(s.done)
	return nil
}

// DeviceUUID returns the UUID advertised in unprovisioned beacons.
func (s *Stack) DeviceUUID() uuid.UUID {
	return s.deviceUUID
}

// Buttons returns the board's reset buttons for node.Config.ResetButtons.
func (s *Stack) Buttons() []gpio.Button {
	return []gpio.Button{
		{Name: "PB0", Pin: s.pb0, ActiveLow: true},
		{Name: "PB1", Pin: s.pb1, ActiveLow: true},
	}
}

// LEDs returns the board's indicator LEDs for node.Config.Indicators.
func (s *Stack) LEDs() []gpio.LED {
	return []gpio.LED{s.leds[0], s.leds[1]}
}

// WaitEvent returns the next queued event. Pending button signals are
// delivered as one ExternalSignal carrying all raised bits.
func (s *Stack) WaitEvent(ctx context.Context) (stack.Event, error) {
	select {
	case <-s.done:
		return nil, stack.ErrStopped
	default:
	}

	select {
	case ev := <-s.events:
		return ev, nil
	case <-s.signals.Notify():
		if bits, ok := s.signals.Drain(); ok {
			return stack.ExternalSignal{Signals: bits}, nil
		}
		return nil, nil
	case <-s.done:
		return nil, stack.ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Filter lets the mesh library consume the model retransmission timers.
func (s *Stack) Filter(ev stack.Event) bool {
	if e, ok := ev.(stack.SoftTimerElapsed); ok && e.Timer.IsRetransmission() {
		s.debugLog("retransmission timer consumed", "timer", e.Timer.String())
		return false
	}
	return true
}

// push queues ev without blocking. Events that do not fit are dropped.
func (s *Stack) push(ev stack.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushLocked(ev)
}

func (s *Stack) pushLocked(ev stack.Event) bool {
	if s.closed {
		return false
	}
	select {
	case s.events <- ev:
		return true
	default:
		s.dropped++
		s.warnLog("event queue full, dropping event", "event", ev.ID().String())
		return false
	}
}

// Dropped returns the number of events lost to a full queue.
func (s *Stack) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Stack) timerElapsed(id stack.TimerID) {
	s.push(stack.SoftTimerElapsed{Timer: id})
}

func (s *Stack) debugLog(msg string, args ...any) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Debug(msg, args...)
	}
}

func (s *Stack) infoLog(msg string, args ...any) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Info(msg, args...)
	}
}

func (s *Stack) warnLog(msg string, args ...any) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Warn(msg, args...)
	}
}
