package node

import (
	"fmt"
	"time"

	"github.com/lpnswitch/lpnswitch-go/pkg/log"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// tracedCommands issues commands to the stack and reports each one to the
// trace, the metrics and, on failure, the operational log.
type tracedCommands struct {
	next stack.Commands
	n    *Node
}

func (t *tracedCommands) done(name string, r stack.Result, args ...any) stack.Result {
	t.n.commandIssued(name, fmt.Sprint(args...), r)
	return r
}

func (t *tracedCommands) GetBDAddr() (stack.BDAddr, stack.Result) {
	addr, r := t.next.GetBDAddr()
	t.n.commandIssued(stack.CmdGetBDAddr, addr.String(), r)
	return addr, r
}

func (t *tracedCommands) WriteAttribute(char stack.Characteristic, offset uint16, value []byte) stack.Result {
	r := t.next.WriteAttribute(char, offset, value)
	return t.done(stack.CmdWriteAttribute, r, fmt.Sprintf("char=%d offset=%d value=%q", char, offset, value))
}

func (t *tracedCommands) SendUserWriteResponse(conn stack.Handle, char stack.Characteristic, status stack.Result) stack.Result {
	r := t.next.SendUserWriteResponse(conn, char, status)
	return t.done(stack.CmdSendUserWriteResponse, r, fmt.Sprintf("conn=%d char=%d status=%s", conn, char, status))
}

func (t *tracedCommands) NodeInit() stack.Result {
	return t.done(stack.CmdNodeInit, t.next.NodeInit())
}

func (t *tracedCommands) StartUnprovBeaconing(bearers stack.Bearer) stack.Result {
	r := t.next.StartUnprovBeaconing(bearers)
	return t.done(stack.CmdStartUnprovBeaconing, r, fmt.Sprintf("bearers=0x%x", uint8(bearers)))
}

func (t *tracedCommands) GenericClientInit() stack.Result {
	return t.done(stack.CmdGenericClientInit, t.next.GenericClientInit())
}

func (t *tracedCommands) SceneClientInit(elemIndex uint16) stack.Result {
	r := t.next.SceneClientInit(elemIndex)
	return t.done(stack.CmdSceneClientInit, r, fmt.Sprintf("elem=%d", elemIndex))
}

func (t *tracedCommands) MeshLibInit(maxModels int) stack.Result {
	r := t.next.MeshLibInit(maxModels)
	return t.done(stack.CmdMeshLibInit, r, fmt.Sprintf("max_models=%d", maxModels))
}

func (t *tracedCommands) LPNInit() stack.Result {
	return t.done(stack.CmdLPNInit, t.next.LPNInit())
}

func (t *tracedCommands) LPNConfig(key stack.LPNConfigKey, value uint32) stack.Result {
	r := t.next.LPNConfig(key, value)
	return t.done(stack.CmdLPNConfig, r, fmt.Sprintf("key=%s value=%d", key, value))
}

func (t *tracedCommands) LPNEstablishFriendship(timeout uint32) stack.Result {
	r := t.next.LPNEstablishFriendship(timeout)
	return t.done(stack.CmdLPNEstablishFriendship, r, fmt.Sprintf("timeout=%d", timeout))
}

func (t *tracedCommands) LPNTerminateFriendship() stack.Result {
	return t.done(stack.CmdLPNTerminateFriendship, t.next.LPNTerminateFriendship())
}

func (t *tracedCommands) LPNDeinit() stack.Result {
	return t.done(stack.CmdLPNDeinit, t.next.LPNDeinit())
}

func (t *tracedCommands) CloseConnection(conn stack.Handle) stack.Result {
	r := t.next.CloseConnection(conn)
	return t.done(stack.CmdCloseConnection, r, fmt.Sprintf("conn=%d", conn))
}

func (t *tracedCommands) SetSoftTimer(ticks stack.Ticks, id stack.TimerID, singleShot bool) stack.Result {
	r := t.next.SetSoftTimer(ticks, id, singleShot)
	return t.done(stack.CmdSetSoftTimer, r, fmt.Sprintf("timer=%s ticks=%d single_shot=%t", id, ticks, singleShot))
}

func (t *tracedCommands) EraseAllSettings() stack.Result {
	return t.done(stack.CmdEraseAllSettings, t.next.EraseAllSettings())
}

func (t *tracedCommands) SystemReset(mode stack.ResetMode) {
	t.n.cfg.Metrics.SystemReset(mode.String())
	// Record before handing over: on the target the reset does not return.
	t.n.commandIssued(stack.CmdSystemReset, fmt.Sprintf("mode=%s", mode), stack.ResultSuccess)
	t.next.SystemReset(mode)
}

// Compile-time interface satisfaction check.
var _ stack.Commands = (*tracedCommands)(nil)

func (n *Node) newTraceEvent(dir log.Direction, cat log.Category) log.Event {
	ev := log.Event{
		Timestamp: time.Now(),
		SessionID: n.cfg.SessionID,
		Direction: dir,
		Category:  cat,
		Node:      n.nc.Name,
	}
	if n.nc.Identity.Assigned() {
		ev.Address = n.nc.Identity.Address
	}
	return ev
}

func (n *Node) commandIssued(name, args string, r stack.Result) {
	ev := n.newTraceEvent(log.DirectionOut, log.CategoryCommand)
	ev.Command = &log.CommandData{Name: name, Args: args, Result: r}
	n.cfg.Trace.Log(ev)
	n.cfg.Metrics.CommandIssued(name, r.String(), !r.Ok())

	if err := stack.Check(name, r); err != nil {
		n.warnLog("stack command failed", "command", name, "args", args, "error", err)
	}
}

func (n *Node) traceEvent(e stack.Event) {
	ev := n.newTraceEvent(log.DirectionIn, log.CategoryEvent)
	ev.StackEvent = &log.StackEventData{
		ID:     e.ID(),
		Name:   e.ID().String(),
		Detail: fmt.Sprintf("%+v", e),
	}
	n.cfg.Trace.Log(ev)
	n.cfg.Metrics.EventDispatched(e.ID().String())
}

func (n *Node) traceState(entity log.StateEntity, from, to, reason string) {
	ev := n.newTraceEvent(log.DirectionLocal, log.CategoryState)
	ev.StateChange = &log.StateChangeEvent{
		Entity:   entity,
		OldState: from,
		NewState: to,
		Reason:   reason,
	}
	n.cfg.Trace.Log(ev)
}

func (n *Node) debugLog(msg string, args ...any) {
	if n.cfg.Logger != nil {
		n.cfg.Logger.Debug(msg, args...)
	}
}

func (n *Node) infoLog(msg string, args ...any) {
	if n.cfg.Logger != nil {
		n.cfg.Logger.Info(msg, args...)
	}
}

func (n *Node) warnLog(msg string, args ...any) {
	if n.cfg.Logger != nil {
		n.cfg.Logger.Warn(msg, args...)
	}
}
