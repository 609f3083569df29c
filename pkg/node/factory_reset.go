package node

import (
	"github.com/lpnswitch/lpnswitch-go/pkg/display"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// factoryReset erases all settings and schedules the reboot. Calling it
// again repeats every step and re-arms the timer.
func (n *Node) factoryReset(reason string) {
	n.warnLog("factory reset", "reason", reason)
	n.cfg.Display.Print(display.RowStatus, display.TextFactoryReset)

	if h := n.nc.Conn.LastHandle; h != stack.NoHandle {
		n.cmds.CloseConnection(h)
	}
	n.cmds.EraseAllSettings()
	n.setTimer(stack.TimerFactoryReset, stack.DurationToTicks(n.cfg.RebootDelay), true)
	n.setState(StateFactoryReset, reason)
}
