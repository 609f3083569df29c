package node

import (
	"fmt"
	"sync/atomic"

	"github.com/lpnswitch/lpnswitch-go/pkg/display"
	"github.com/lpnswitch/lpnswitch-go/pkg/gpio"
	"github.com/lpnswitch/lpnswitch-go/pkg/log"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// Node is the lifecycle state machine of the switch.
type Node struct {
	cfg  Config
	cmds stack.Commands
	nc   *Context

	status atomic.Pointer[Status]
}

// New creates a node issuing commands to cmds.
func New(cmds stack.Commands, cfg Config) (*Node, error) {
	if cmds == nil {
		return nil, ErrNoStack
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	n := &Node{
		cfg: cfg,
		nc:  NewContext(),
	}
	n.cmds = &tracedCommands{next: cmds, n: n}
	n.publish()
	return n, nil
}

// Context returns the live context. Only the dispatch goroutine may use it.
func (n *Node) Context() *Context {
	return n.nc
}

// Status returns the snapshot taken after the last handled event.
// It is safe to call from any goroutine.
func (n *Node) Status() Status {
	return *n.status.Load()
}

// SessionID returns the trace session identifier.
func (n *Node) SessionID() string {
	return n.cfg.SessionID
}

func (n *Node) publish() {
	s := n.nc.Status()
	n.status.Store(&s)
}

// Handle reacts to one stack event.
func (n *Node) Handle(ev stack.Event) {
	if ev == nil {
		return
	}
	n.traceEvent(ev)
	defer n.publish()

	switch e := ev.(type) {
	case stack.Boot:
		n.onBoot(e)
	case stack.SoftTimerElapsed:
		n.onSoftTimer(e)
	case stack.NodeInitialized:
		n.onNodeInitialized(e)
	case stack.ProvisioningStarted:
		n.onProvisioningStarted()
	case stack.Provisioned:
		n.onProvisioned(e)
	case stack.ProvisioningFailed:
		n.onProvisioningFailed(e)
	case stack.ConnectionOpened:
		n.connectionOpened(e.Connection)
	case stack.ConnectionClosed:
		n.connectionClosed(e.Reason)
	case stack.ConnectionParameters:
		n.debugLog("connection parameters",
			"conn", e.Connection,
			"interval", e.Interval,
			"latency", e.Latency,
			"timeout", e.Timeout)
	case stack.AdvertisingTimeout:
		// Advertising restarts on its own.
	case stack.UserWriteRequest:
		n.onUserWrite(e)
	case stack.NodeReset:
		n.factoryReset("node reset requested")
	case stack.FriendshipEstablished:
		n.onFriendshipEstablished(e)
	case stack.FriendshipFailed:
		n.onFriendshipFailed(e)
	case stack.FriendshipTerminated:
		n.onFriendshipTerminated(e)
	case stack.ExternalSignal:
		n.debugLog("external signal", "signals", fmt.Sprintf("0x%x", e.Signals))
	default:
		n.debugLog("ignoring event", "event", ev.ID().String())
	}
}

func (n *Node) onBoot(e stack.Boot) {
	prev := n.nc.State
	n.nc.reset()
	n.cfg.Metrics.SetConnections(0)
	n.cfg.Metrics.SetLPNActive(false)
	n.cfg.Metrics.SetLifecycle(prev.String(), StateBooting.String())
	n.traceState(log.StateEntityLifecycle, prev.String(), StateBooting.String(), "system_boot")
	n.infoLog("node booted", "version", fmt.Sprintf("%d.%d.%d-%d", e.Major, e.Minor, e.Patch, e.Build))

	n.setIndicators(false)

	if gpio.AnyPressed(n.cfg.ResetButtons) {
		n.factoryReset("reset button held at boot")
		return
	}

	addr, r := n.cmds.GetBDAddr()
	if r.Ok() {
		n.setDeviceName(addr)
	}

	n.setState(StateInitializing, "node init")
	if r := n.cmds.NodeInit(); !r.Ok() {
		n.cfg.Display.Print(display.RowStatus, display.InitFailed(r))
	}
}

// setDeviceName derives the name from the two low address bytes and
// publishes it in the GATT database and on the display.
func (n *Node) setDeviceName(addr stack.BDAddr) {
	name := fmt.Sprintf("%s %02x:%02x", n.cfg.NamePrefix, addr[1], addr[0])
	n.nc.Name = name
	n.infoLog("device name set", "name", name, "bd_addr", addr.String())

	n.cmds.WriteAttribute(stack.CharDeviceName, 0, []byte(name))
	n.cfg.Display.Print(display.RowName, name)
}

func (n *Node) onSoftTimer(e stack.SoftTimerElapsed) {
	armed := n.nc.Timers.Running(e.Timer)
	n.nc.Timers.Elapsed(e.Timer)

	switch e.Timer {
	case stack.TimerFactoryReset, stack.TimerRestart:
		n.infoLog("rebooting", "timer", e.Timer.String())
		n.cmds.SystemReset(stack.ResetNormal)
	case stack.TimerFriendFind:
		n.debugLog("trying to find friend")
		n.cmds.LPNEstablishFriendship(0)
	case stack.TimerProvisioning:
		// An expiry already queued when the blink was stopped.
		if !armed {
			return
		}
		for _, led := range n.cfg.Indicators {
			led.Toggle()
		}
	}
}

func (n *Node) onNodeInitialized(e stack.NodeInitialized) {
	n.cmds.GenericClientInit()
	n.cmds.SceneClientInit(0)

	if !e.Provisioned {
		n.infoLog("node is unprovisioned")
		n.cfg.Display.Print(display.RowStatus, display.TextUnprovisioned)
		n.cmds.StartUnprovBeaconing(stack.BearerAdvertising | stack.BearerGATT)
		n.setState(StateUnprovisioned, "node initialized")
		return
	}

	n.infoLog("node is provisioned", "address", e.Address.String(), "iv_index", e.IVIndex)
	n.assignIdentity(e.Address)
	n.provisionedSetup()
	n.setState(StateProvisioned, "node initialized")
	n.lpnEnter()
}

func (n *Node) onProvisioningStarted() {
	n.infoLog("provisioning started")
	n.cfg.Display.Print(display.RowStatus, display.TextProvisioning)
	n.setTimer(stack.TimerProvisioning, stack.DurationToTicks(n.cfg.BlinkPeriod), false)
}

func (n *Node) onProvisioned(e stack.Provisioned) {
	n.infoLog("node provisioned", "address", e.Address.String(), "iv_index", e.IVIndex)
	n.assignIdentity(e.Address)
	n.provisionedSetup()

	if n.nc.Timers.Running(stack.TimerProvisioning) {
		n.setTimer(stack.TimerProvisioning, stack.TimerStop, false)
	}
	n.setIndicators(false)

	n.cfg.Display.Print(display.RowStatus, display.TextProvisioned)
	n.setState(StateProvisioned, "provisioned")

	if n.cfg.EnterLPNOnProvisioned {
		n.lpnEnter()
	}
}

func (n *Node) onProvisioningFailed(e stack.ProvisioningFailed) {
	n.warnLog("provisioning failed", "result", e.Result.String())
	n.cfg.Display.Print(display.RowStatus, display.TextProvFailed)
	n.setTimer(stack.TimerRestart, stack.DurationToTicks(n.cfg.RebootDelay), true)
	n.setState(StateProvisioningFailed, fmt.Sprintf("provisioning failed (%s)", e.Result))
}

// onUserWrite handles writes to user characteristics. A write to the OTA
// control point arms the firmware update reboot for the next disconnect.
func (n *Node) onUserWrite(e stack.UserWriteRequest) {
	if e.Characteristic != stack.CharOTAControl {
		n.debugLog("ignoring user write", "char", e.Characteristic, "conn", e.Connection)
		return
	}

	n.infoLog("firmware update requested", "conn", e.Connection)
	n.nc.PendingDFU = true
	n.traceState(log.StateEntityConnection, "", "dfu pending", "ota control write")

	n.cmds.SendUserWriteResponse(e.Connection, e.Characteristic, stack.ResultSuccess)
	n.cmds.CloseConnection(e.Connection)
}

// provisionedSetup initializes the mesh library for a provisioned node.
func (n *Node) provisionedSetup() {
	n.cmds.MeshLibInit(n.cfg.MaxModels)
}

// assignIdentity adopts the primary element at addr. The identity is fixed
// for the rest of the boot; later attempts are ignored.
func (n *Node) assignIdentity(addr stack.Address) {
	if n.nc.Identity.Assigned() {
		n.debugLog("identity already assigned",
			"address", n.nc.Identity.Address.String(),
			"ignored", addr.String())
		return
	}
	n.nc.Identity = Identity{ElementIndex: 0, Address: addr}
	n.traceState(log.StateEntityIdentity, "", fmt.Sprintf("elem=0 addr=%s", addr), "")
}

func (n *Node) setState(s State, reason string) {
	old := n.nc.State
	if old == s {
		return
	}
	n.nc.State = s
	n.traceState(log.StateEntityLifecycle, old.String(), s.String(), reason)
	n.cfg.Metrics.SetLifecycle(old.String(), s.String())
	n.debugLog("lifecycle state changed", "from", old.String(), "to", s.String(), "reason", reason)
}

// setTimer arms, re-arms or (with stack.TimerStop) cancels a soft timer and
// records the result in the context.
func (n *Node) setTimer(id stack.TimerID, ticks stack.Ticks, singleShot bool) {
	if r := n.cmds.SetSoftTimer(ticks, id, singleShot); !r.Ok() {
		return
	}
	was := n.nc.Timers.Running(id)
	n.nc.Timers.Start(id, ticks, singleShot)

	switch {
	case ticks == stack.TimerStop && was:
		n.traceState(log.StateEntityTimer, id.String(), "stopped", "")
	case ticks != stack.TimerStop:
		n.traceState(log.StateEntityTimer, id.String(), fmt.Sprintf("armed %s", ticks.Duration()), "")
	}
}

func (n *Node) setIndicators(on bool) {
	for _, led := range n.cfg.Indicators {
		led.Set(on)
	}
}
