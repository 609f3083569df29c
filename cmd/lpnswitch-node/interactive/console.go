// Package interactive provides the interactive command-line interface
// for lpnswitch-node.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/lpnswitch/lpnswitch-go/pkg/node"
	"github.com/lpnswitch/lpnswitch-go/pkg/sim"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// Simulator is the part of the simulated stack the console drives.
type Simulator interface {
	Press(button string) error
	Release(button string) error
	Provision(addr stack.Address, ivIndex uint32) error
	FailProvisioning(reason stack.Result) error
	RequestNodeReset() error
	Connect(peer stack.BDAddr) (stack.Handle, error)
	Disconnect(conn stack.Handle) error
	RequestDFU(conn stack.Handle) error
	SetFriendAvailable(ok bool)
	LoseFriend(reason stack.Result) error
	Status() sim.Status
}

// NodeStatus returns the node's latest status snapshot.
type NodeStatus interface {
	Status() node.Status
}

// Options configures the console.
type Options struct {
	// Panel renders the display, if there is one.
	Panel func() string

	// Peer is the address used by connect when none is given.
	// Default: 00:11:22:33:44:55.
	Peer stack.BDAddr
}

var defaultPeer = stack.BDAddr{0x55, 0x44, 0x33, 0x22, 0x11, 0x00}

// Console handles interactive mode for lpnswitch-node.
type Console struct {
	sim  Simulator
	node NodeStatus
	opts Options
	out  io.Writer
	rl   *readline.Instance
}

// New creates a console reading commands from the terminal.
func New(s Simulator, n NodeStatus, opts Options) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "switch> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := newConsole(s, n, opts, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(s Simulator, n NodeStatus, opts Options, out io.Writer) *Console {
	if opts.Peer == (stack.BDAddr{}) {
		opts.Peer = defaultPeer
	}
	return &Console{sim: s, node: n, opts: opts, out: out}
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if c.Exec(line) {
			cancel()
			return
		}
	}
}

// Exec runs one command line and reports whether the console should exit.
func (c *Console) Exec(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		c.printHelp()

	case "press", "p":
		err = c.cmdButton(args, c.sim.Press)

	case "release", "r":
		err = c.cmdButton(args, c.sim.Release)

	case "provision", "prov":
		err = c.cmdProvision(args)

	case "fail-prov":
		err = c.cmdFailProvisioning(args)

	case "node-reset":
		err = c.sim.RequestNodeReset()

	case "connect", "c":
		err = c.cmdConnect(args)

	case "disconnect", "d":
		err = c.withHandle(args, c.sim.Disconnect)

	case "ota":
		err = c.withHandle(args, c.sim.RequestDFU)

	case "friend":
		err = c.cmdFriend(args)

	case "lose-friend":
		err = c.sim.LoseFriend(stack.ResultTimeout)

	case "status", "s":
		c.cmdStatus()

	case "display":
		c.cmdDisplay()

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}

	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Switch Node Commands:
  Buttons:
    press <PB0|PB1>        - Hold a button (held at boot: factory reset)
    release <PB0|PB1>      - Release a button

  Provisioning:
    provision <addr> [iv]  - Provision the node with a unicast address
    fail-prov [result]     - Start a provisioning that fails
    node-reset             - Remove the node from the network

  Connections:
    connect [peer]         - Open a GATT connection
    disconnect <handle>    - Close a connection from the remote side
    ota <handle>           - Request a firmware update on a connection

  Friendship:
    friend <on|off>        - Make a friend node available or not
    lose-friend            - End the current friendship

  Status:
    status                 - Show node and stack status
    display                - Show the display

  Other:
    help                   - Show this help
    quit                   - Exit`)
}

func (c *Console) cmdButton(args []string, fn func(string) error) error {
	if len(args) != 1 {
		return errors.New("usage: press|release <PB0|PB1>")
	}
	return fn(strings.ToUpper(args[0]))
}

func (c *Console) cmdProvision(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: provision <addr> [iv]")
	}
	addr, err := strconv.ParseUint(args[0], 0, 16)
	if err != nil || addr == 0 {
		return fmt.Errorf("invalid unicast address: %s", args[0])
	}
	var iv uint64
	if len(args) == 2 {
		if iv, err = strconv.ParseUint(args[1], 0, 32); err != nil {
			return fmt.Errorf("invalid IV index: %s", args[1])
		}
	}
	if err := c.sim.Provision(stack.Address(addr), uint32(iv)); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Provisioning as %s\n", stack.Address(addr))
	return nil
}

func (c *Console) cmdFailProvisioning(args []string) error {
	reason := stack.ResultTimeout
	if len(args) > 0 {
		v, err := strconv.ParseUint(args[0], 0, 16)
		if err != nil {
			return fmt.Errorf("invalid result: %s", args[0])
		}
		reason = stack.Result(v)
	}
	return c.sim.FailProvisioning(reason)
}

func (c *Console) cmdConnect(args []string) error {
	peer := c.opts.Peer
	if len(args) > 0 {
		var err error
		if peer, err = stack.ParseBDAddr(args[0]); err != nil {
			return err
		}
	}
	h, err := c.sim.Connect(peer)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Connected %s as handle %d\n", peer, h)
	return nil
}

func (c *Console) withHandle(args []string, fn func(stack.Handle) error) error {
	if len(args) != 1 {
		return errors.New("connection handle required")
	}
	v, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		return fmt.Errorf("invalid handle: %s", args[0])
	}
	return fn(stack.Handle(v))
}

func (c *Console) cmdFriend(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: friend <on|off>")
	}
	switch strings.ToLower(args[0]) {
	case "on":
		c.sim.SetFriendAvailable(true)
	case "off":
		c.sim.SetFriendAvailable(false)
	default:
		return fmt.Errorf("expected on or off, got %s", args[0])
	}
	return nil
}

func (c *Console) cmdStatus() {
	ns := c.node.Status()
	ss := c.sim.Status()

	fmt.Fprintln(c.out, "Node:")
	fmt.Fprintf(c.out, "  State:       %s\n", ns.State)
	fmt.Fprintf(c.out, "  Name:        %s\n", ns.Name)
	if ns.Identity.Assigned() {
		fmt.Fprintf(c.out, "  Address:     %s (element %d)\n", ns.Identity.Address, ns.Identity.ElementIndex)
	} else {
		fmt.Fprintln(c.out, "  Address:     unassigned")
	}
	fmt.Fprintf(c.out, "  Connections: %d\n", ns.Conn.ActiveCount)
	fmt.Fprintf(c.out, "  LPN:         %v\n", ns.LPN.Active)
	if ns.PendingDFU {
		fmt.Fprintln(c.out, "  DFU:         pending")
	}
	for _, t := range ns.Timers {
		fmt.Fprintf(c.out, "  Timer:       %s %d ticks (single shot: %v)\n", t.ID, t.Ticks, t.OneShot)
	}

	fmt.Fprintln(c.out, "Stack:")
	fmt.Fprintf(c.out, "  Provisioned: %v\n", ss.Provisioned)
	if ss.Friend != 0 {
		fmt.Fprintf(c.out, "  Friend:      %s\n", ss.Friend)
	}
	fmt.Fprintf(c.out, "  Handles:     %v\n", ss.Connections)
	fmt.Fprintf(c.out, "  LEDs:        %v\n", ss.LEDs)
	fmt.Fprintf(c.out, "  Resets:      %d\n", len(ss.Resets))
}

func (c *Console) cmdDisplay() {
	if c.opts.Panel == nil {
		fmt.Fprintln(c.out, "No terminal display configured")
		return
	}
	fmt.Fprintln(c.out, c.opts.Panel())
}
