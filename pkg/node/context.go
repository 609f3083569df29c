package node

import (
	"fmt"

	"github.com/lpnswitch/lpnswitch-go/pkg/softtimer"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// State is the node lifecycle state.
type State uint8

const (
	// StateBooting - boot event received, context fresh.
	StateBooting State = iota

	// StateInitializing - mesh node initialization requested.
	StateInitializing

	// StateUnprovisioned - beaconing, waiting for a provisioner.
	StateUnprovisioned

	// StateProvisioned - member of a mesh network.
	StateProvisioned

	// StateProvisioningFailed - waiting for the restart timer.
	StateProvisioningFailed

	// StateFactoryReset - settings erased, waiting for the reset timer.
	StateFactoryReset
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateBooting:
		return "BOOTING"
	case StateInitializing:
		return "INITIALIZING"
	case StateUnprovisioned:
		return "UNPROVISIONED"
	case StateProvisioned:
		return "PROVISIONED"
	case StateProvisioningFailed:
		return "PROVISIONING_FAILED"
	case StateFactoryReset:
		return "FACTORY_RESET"
	default:
		return fmt.Sprintf("STATE_%d", uint8(s))
	}
}

// ParseState converts a state name back to its value.
func ParseState(s string) (State, bool) {
	for st := StateBooting; st <= StateFactoryReset; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}

// ElementUnassigned marks an identity that has not been assigned yet.
const ElementUnassigned uint16 = 0xFFFF

// Identity is the node's primary element index and unicast address.
type Identity struct {
	ElementIndex uint16
	Address      stack.Address
}

// Assigned reports whether the identity has been set.
func (i Identity) Assigned() bool {
	return i.ElementIndex != ElementUnassigned
}

// ConnectionState tracks open GATT connections.
// LastHandle is stack.NoHandle when there is no current connection.
type ConnectionState struct {
	ActiveCount uint8
	LastHandle  stack.Handle
}

// LpnState tracks low power node operation.
type LpnState struct {
	Active bool
}

// Context is all mutable node state. Only the dispatch goroutine may use it.
type Context struct {
	State      State
	Identity   Identity
	Conn       ConnectionState
	LPN        LpnState
	PendingDFU bool

	// Name is the device name derived at boot.
	Name string

	// Timers mirrors the soft timers the node armed.
	Timers *softtimer.Registry
}

// NewContext returns the context of a freshly booted node.
func NewContext() *Context {
	c := &Context{Timers: softtimer.NewRegistry()}
	c.reset()
	return c
}

func (c *Context) reset() {
	c.State = StateBooting
	c.Identity = Identity{ElementIndex: ElementUnassigned}
	c.Conn = ConnectionState{LastHandle: stack.NoHandle}
	c.LPN = LpnState{}
	c.PendingDFU = false
	c.Name = ""
	c.Timers.Clear()
}

// Status is a copy of the Context that may be read from any goroutine.
type Status struct {
	State      State
	Identity   Identity
	Conn       ConnectionState
	LPN        LpnState
	PendingDFU bool
	Name       string
	Timers     []softtimer.Entry
}

// Status takes a snapshot of c.
func (c *Context) Status() Status {
	return Status{
		State:      c.State,
		Identity:   c.Identity,
		Conn:       c.Conn,
		LPN:        c.LPN,
		PendingDFU: c.PendingDFU,
		Name:       c.Name,
		Timers:     c.Timers.Entries(),
	}
}

// TimerArmed reports whether the snapshot shows id armed.
func (s Status) TimerArmed(id stack.TimerID) (softtimer.Entry, bool) {
	for _, e := range s.Timers {
		if e.ID == id {
			return e, true
		}
	}
	return softtimer.Entry{}, false
}
