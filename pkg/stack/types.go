package stack

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Address is a 16-bit mesh unicast address.
type Address uint16

// String returns the address as 0xNNNN.
func (a Address) String() string {
	return fmt.Sprintf("0x%04x", uint16(a))
}

// Handle identifies an LE connection.
type Handle uint8

// NoHandle is the sentinel for "no current connection".
const NoHandle Handle = 0xFF

// BDAddr is a 48-bit Bluetooth device address, least significant byte first.
type BDAddr [6]byte

// String returns the address in the conventional big-endian colon form.
func (a BDAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[5], a[4], a[3], a[2], a[1], a[0])
}

// ParseBDAddr parses an address in the form "aa:bb:cc:dd:ee:ff".
func ParseBDAddr(s string) (BDAddr, error) {
	var a BDAddr
	parts := strings.Split(s, ":")
	if len(parts) != len(a) {
		return a, fmt.Errorf("invalid bluetooth address %q", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil || len(p) != 2 {
			return a, fmt.Errorf("invalid bluetooth address %q", s)
		}
		a[len(a)-1-i] = byte(v)
	}
	return a, nil
}

// TimerID identifies a logical soft timer.
type TimerID uint8

// Soft timer identifiers.
const (
	TimerRetransOnOff     TimerID = 10
	TimerRetransLightness TimerID = 11
	TimerRetransCTL       TimerID = 12
	TimerRetransScene     TimerID = 13
	TimerFriendFind       TimerID = 20
	TimerNodeConfigured   TimerID = 30
	TimerProvisioning     TimerID = 66
	TimerFactoryReset     TimerID = 77
	TimerRestart          TimerID = 78
)

// String returns the timer name.
func (t TimerID) String() string {
	switch t {
	case TimerRetransOnOff:
		return "RETRANS_ONOFF"
	case TimerRetransLightness:
		return "RETRANS_LIGHTNESS"
	case TimerRetransCTL:
		return "RETRANS_CTL"
	case TimerRetransScene:
		return "RETRANS_SCENE"
	case TimerFriendFind:
		return "FRIEND_FIND"
	case TimerNodeConfigured:
		return "NODE_CONFIGURED"
	case TimerProvisioning:
		return "PROVISIONING"
	case TimerFactoryReset:
		return "FACTORY_RESET"
	case TimerRestart:
		return "RESTART"
	default:
		return fmt.Sprintf("TIMER_%d", uint8(t))
	}
}

// TimerIDs lists the known soft timers in ascending order.
var TimerIDs = []TimerID{
	TimerRetransOnOff,
	TimerRetransLightness,
	TimerRetransCTL,
	TimerRetransScene,
	TimerFriendFind,
	TimerNodeConfigured,
	TimerProvisioning,
	TimerFactoryReset,
	TimerRestart,
}

// ParseTimerID accepts a timer name ("FRIEND_FIND") or a decimal ID.
func ParseTimerID(s string) (TimerID, bool) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, id := range TimerIDs {
		if id.String() == name {
			return id, true
		}
	}
	if v, err := strconv.ParseUint(s, 10, 8); err == nil {
		return TimerID(v), true
	}
	return 0, false
}

// IsRetransmission reports whether the timer belongs to the model
// retransmission machinery of the mesh library.
func (t TimerID) IsRetransmission() bool {
	return t >= TimerRetransOnOff && t <= TimerRetransScene
}

// Ticks is a soft timer period in 32768 Hz clock ticks.
type Ticks uint32

// Tick constants.
const (
	// TicksPerSecond is the soft timer clock frequency.
	TicksPerSecond Ticks = 32768

	// TimerStop is the reserved period that cancels a timer.
	TimerStop Ticks = 0

	// MaxTicks is the longest period a soft timer can hold, about 36.4 hours.
	MaxTicks Ticks = math.MaxUint32
)

// MsToTicks converts milliseconds to timer ticks, saturating at MaxTicks.
func MsToTicks(ms uint32) Ticks {
	return saturateTicks(uint64(TicksPerSecond) * uint64(ms) / 1000)
}

// DurationToTicks converts a duration to timer ticks. Non-positive
// durations give TimerStop. A positive duration shorter than one tick
// rounds up to one tick so it never reads as TimerStop, and durations
// beyond MaxTicks saturate.
func DurationToTicks(d time.Duration) Ticks {
	if d <= 0 {
		return TimerStop
	}
	if d >= MaxTicks.Duration() {
		return MaxTicks
	}
	t := saturateTicks(uint64(d) * uint64(TicksPerSecond) / uint64(time.Second))
	if t == TimerStop {
		return 1
	}
	return t
}

func saturateTicks(n uint64) Ticks {
	if n > uint64(MaxTicks) {
		return MaxTicks
	}
	return Ticks(n)
}

// Duration returns the wall-clock length of t.
func (t Ticks) Duration() time.Duration {
	return time.Duration(uint64(t) * uint64(time.Second) / uint64(TicksPerSecond))
}

// ResetMode selects the boot target of SystemReset.
type ResetMode uint8

const (
	// ResetNormal reboots into the application.
	ResetNormal ResetMode = 0

	// ResetDFU reboots into the over-the-air update bootloader.
	ResetDFU ResetMode = 2
)

// String returns the reset mode name.
func (m ResetMode) String() string {
	switch m {
	case ResetNormal:
		return "NORMAL"
	case ResetDFU:
		return "DFU"
	default:
		return "UNKNOWN"
	}
}

// Bearer is a bitmask of provisioning bearers.
type Bearer uint8

// Provisioning bearers.
const (
	BearerAdvertising Bearer = 1 << 0
	BearerGATT        Bearer = 1 << 1
)

// LPNConfigKey selects the LPN parameter set by LPNConfig.
type LPNConfigKey uint8

// LPN configuration keys.
const (
	// LPNQueueLength is the minimum friend queue length.
	LPNQueueLength LPNConfigKey = 0

	// LPNPollTimeout is the poll timeout in milliseconds.
	LPNPollTimeout LPNConfigKey = 1
)

// String returns the key name.
func (k LPNConfigKey) String() string {
	switch k {
	case LPNQueueLength:
		return "QUEUE_LENGTH"
	case LPNPollTimeout:
		return "POLL_TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Characteristic is a GATT database attribute handle.
type Characteristic uint16

// Characteristics exposed by the switch GATT database.
const (
	CharDeviceName Characteristic = 11
	CharOTAControl Characteristic = 26
)

// Result is a command result code. Zero means success.
type Result uint16

// Result codes used by the core and the simulated stack.
const (
	ResultSuccess        Result = 0x0000
	ResultInvalidState   Result = 0x0181
	ResultWrongState     Result = 0x0183
	ResultOutOfMemory    Result = 0x0184
	ResultNotImplemented Result = 0x0185
	ResultInvalidParam   Result = 0x0180
	ResultTimeout        Result = 0x0187
	ResultNotFound       Result = 0x0502
	ResultLocalTerminate Result = 0x0216
	ResultRemoteUser     Result = 0x0213
)

// Ok reports whether r is ResultSuccess.
func (r Result) Ok() bool { return r == ResultSuccess }

// String returns the code in hex.
func (r Result) String() string {
	return fmt.Sprintf("0x%04x", uint16(r))
}

// Err returns nil for success and a *CommandError otherwise.
// The command name is left empty; use Check to attribute a failure.
func (r Result) Err() error {
	return Check("", r)
}

// ErrCommandFailed is matched by every *CommandError via errors.Is.
var ErrCommandFailed = errors.New("stack command failed")

// CommandError reports a non-zero result from a stack command.
type CommandError struct {
	Command string
	Result  Result
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("stack command failed (%s)", e.Result)
	}
	return fmt.Sprintf("%s failed (%s)", e.Command, e.Result)
}

// Is makes errors.Is(err, ErrCommandFailed) true.
func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

// Check returns a *CommandError naming command when r is not success.
func Check(command string, r Result) error {
	if r.Ok() {
		return nil
	}
	return &CommandError{Command: command, Result: r}
}
