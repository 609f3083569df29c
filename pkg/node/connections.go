package node

import (
	"math"
	"strconv"

	"github.com/lpnswitch/lpnswitch-go/pkg/display"
	"github.com/lpnswitch/lpnswitch-go/pkg/log"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// connectionOpened admits a new GATT connection. LPN operation is left
// before anything else happens on the connection.
func (n *Node) connectionOpened(h stack.Handle) {
	old := n.nc.Conn.ActiveCount
	if n.nc.Conn.ActiveCount < math.MaxUint8 {
		n.nc.Conn.ActiveCount++
	}
	n.nc.Conn.LastHandle = h
	n.connCountChanged(old, "connection opened")

	n.cfg.Display.Print(display.RowConnection, display.TextConnected)
	n.lpnLeave()
}

// connectionClosed releases a connection. With a firmware update pending
// the node reboots into the bootloader instead.
func (n *Node) connectionClosed(reason stack.Result) {
	n.nc.Conn.LastHandle = stack.NoHandle

	if n.nc.PendingDFU {
		n.nc.PendingDFU = false
		n.infoLog("rebooting into firmware update mode")
		n.cmds.SystemReset(stack.ResetDFU)
		return
	}

	if n.nc.Conn.ActiveCount == 0 {
		n.debugLog("connection closed with none open", "reason", reason.String())
		return
	}

	old := n.nc.Conn.ActiveCount
	n.nc.Conn.ActiveCount--
	n.connCountChanged(old, "connection closed "+reason.String())

	if n.nc.Conn.ActiveCount == 0 {
		n.lpnEnter()
	}
}

func (n *Node) connCountChanged(old uint8, reason string) {
	count := n.nc.Conn.ActiveCount
	n.traceState(log.StateEntityConnection,
		strconv.Itoa(int(old)), strconv.Itoa(int(count)), reason)
	n.cfg.Metrics.SetConnections(int(count))
}
