// Package node implements the lifecycle core of the mesh light switch.
//
// A Node owns a single Context (lifecycle state, identity, connection
// admission state, LPN state, armed timers and the pending firmware update
// flag) and mutates it only from Handle. The Dispatcher is the main loop:
// it blocks on the stack for the next event, offers it to the stack's
// filter and hands whatever passes to Handle. Nothing else touches the
// Context, so no locking is needed on it.
//
// # Lifecycle
//
//	BOOTING ──► INITIALIZING ──► UNPROVISIONED ──► PROVISIONED
//	   │              │                │
//	   │              └────────────────┼──────────► PROVISIONED (already provisioned)
//	   │                               ▼
//	   │                       PROVISIONING_FAILED ──► reboot after 2s
//	   ▼
//	FACTORY_RESET ──► reboot after 2s   (reset button held, or node reset)
//
// Every boot starts from a fresh Context.
//
// # Low Power Node
//
// The LPN is enabled whenever the node is provisioned and no GATT
// connection is open. Opening a connection disables it, and closing the
// last one enables it again. A lost friendship is re-sought after a fixed
// delay while no connection is open.
//
// # Commands
//
// Commands are fire-and-forget. A non-zero result is logged, traced and
// counted, and the triggering operation stops there. Nothing is retried
// except the friend search.
package node
