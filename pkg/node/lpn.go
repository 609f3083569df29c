package node

import (
	"github.com/lpnswitch/lpnswitch-go/pkg/display"
	"github.com/lpnswitch/lpnswitch-go/pkg/log"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// lpnEnter enables low power operation and starts looking for a friend.
// It does nothing while LPN is active or a connection is open.
func (n *Node) lpnEnter() {
	if n.nc.LPN.Active || n.nc.Conn.ActiveCount > 0 {
		return
	}

	if r := n.cmds.LPNInit(); !r.Ok() {
		return
	}
	n.setLPN(true)

	if r := n.cmds.LPNConfig(stack.LPNQueueLength, n.cfg.LPNQueueLength); !r.Ok() {
		return
	}
	pollMs := uint32(n.cfg.LPNPollTimeout.Milliseconds())
	if r := n.cmds.LPNConfig(stack.LPNPollTimeout, pollMs); !r.Ok() {
		return
	}

	n.debugLog("trying to find friend")
	n.cmds.LPNEstablishFriendship(0)
}

// lpnLeave ends the friendship and disables low power operation.
func (n *Node) lpnLeave() {
	if !n.nc.LPN.Active {
		return
	}

	n.setTimer(stack.TimerFriendFind, stack.TimerStop, true)
	n.cmds.LPNTerminateFriendship()
	n.cmds.LPNDeinit()
	n.setLPN(false)
}

func (n *Node) setLPN(active bool) {
	n.nc.LPN.Active = active
	n.cfg.Metrics.SetLPNActive(active)

	text := display.TextLPNOff
	if active {
		text = display.TextLPNOn
	}
	n.cfg.Display.Print(display.RowLPN, text)
	n.traceState(log.StateEntityLPN, lpnName(!active), lpnName(active), "")
	n.infoLog("LPN " + lpnName(active))
}

func lpnName(active bool) string {
	if active {
		return "on"
	}
	return "off"
}

func (n *Node) onFriendshipEstablished(e stack.FriendshipEstablished) {
	n.infoLog("friendship established", "friend", e.Friend.String())
	n.cfg.Display.Print(display.RowLPN, display.TextLPNWithFriend)
	n.traceState(log.StateEntityLPN, "", "friend "+e.Friend.String(), "")
}

func (n *Node) onFriendshipFailed(e stack.FriendshipFailed) {
	n.infoLog("friendship failed", "reason", e.Reason.String())
	n.cfg.Display.Print(display.RowLPN, display.TextNoFriend)
}

// onFriendshipTerminated schedules a new friend search unless a
// connection is open; the search resumes when the last one closes.
func (n *Node) onFriendshipTerminated(e stack.FriendshipTerminated) {
	n.infoLog("friendship terminated", "reason", e.Reason.String())
	n.cfg.Display.Print(display.RowLPN, display.TextFriendLost)
	n.traceState(log.StateEntityLPN, "", "no friend", e.Reason.String())

	if n.nc.Conn.ActiveCount == 0 {
		n.setTimer(stack.TimerFriendFind, stack.DurationToTicks(n.cfg.FriendRetryDelay), true)
	}
}
