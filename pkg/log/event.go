package log

import (
	"time"

	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// Event is one entry of the node trace.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies one node run (UUID), from boot to process exit.
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates whether the stack or the node originated it.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the payload.
	Category Category `cbor:"4,keyasint"`

	// Node is the device name once it has been derived at boot.
	Node string `cbor:"5,keyasint,omitempty"`

	// Address is the unicast address once the node has an identity.
	Address stack.Address `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	StackEvent  *StackEventData   `cbor:"10,keyasint,omitempty"`
	Command     *CommandData      `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates the flow between node and stack.
type Direction uint8

const (
	// DirectionIn is stack to node.
	DirectionIn Direction = 0
	// DirectionOut is node to stack.
	DirectionOut Direction = 1
	// DirectionLocal is a change inside the node.
	DirectionLocal Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionLocal:
		return "LOCAL"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryEvent is a dispatched stack event.
	CategoryEvent Category = 0
	// CategoryCommand is an issued stack command.
	CategoryCommand Category = 1
	// CategoryState is a node state change.
	CategoryState Category = 2
	// CategoryError is an error.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryEvent:
		return "EVENT"
	case CategoryCommand:
		return "COMMAND"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory converts a category name back to its value.
func ParseCategory(s string) (Category, bool) {
	for c := CategoryEvent; c <= CategoryError; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// StackEventData captures a stack event as it was dispatched.
type StackEventData struct {
	// ID is the raw event identifier.
	ID stack.EventID `cbor:"1,keyasint"`

	// Name is the event name, e.g. "mesh_node_provisioned".
	Name string `cbor:"2,keyasint"`

	// Detail is a printable rendering of the event fields.
	Detail string `cbor:"3,keyasint,omitempty"`
}

// CommandData captures a command issued to the stack.
type CommandData struct {
	// Name is the command name, e.g. "lpn_init".
	Name string `cbor:"1,keyasint"`

	// Args is a printable rendering of the arguments.
	Args string `cbor:"2,keyasint,omitempty"`

	// Result returned by the stack. SystemReset never returns one.
	Result stack.Result `cbor:"3,keyasint"`
}

// Failed reports whether the stack rejected the command.
func (c *CommandData) Failed() bool {
	return !c.Result.Ok()
}

// StateChangeEvent captures a node state transition.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	// StateEntityLifecycle is the provisioning lifecycle.
	StateEntityLifecycle StateEntity = 0
	// StateEntityConnection is the GATT connection admission state.
	StateEntityConnection StateEntity = 1
	// StateEntityLPN is the low power node state.
	StateEntityLPN StateEntity = 2
	// StateEntityTimer is a soft timer.
	StateEntityTimer StateEntity = 3
	// StateEntityIdentity is the node's element index and address.
	StateEntityIdentity StateEntity = 4
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityLifecycle:
		return "LIFECYCLE"
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityLPN:
		return "LPN"
	case StateEntityTimer:
		return "TIMER"
	case StateEntityIdentity:
		return "IDENTITY"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures an error.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Code is the stack result code (if applicable).
	Code *stack.Result `cbor:"2,keyasint,omitempty"`

	// Context describes what the node was doing.
	Context string `cbor:"3,keyasint,omitempty"`
}
