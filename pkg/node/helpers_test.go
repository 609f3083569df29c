package node

import (
	"sync"
	"testing"

	"github.com/lpnswitch/lpnswitch-go/pkg/display"
	"github.com/lpnswitch/lpnswitch-go/pkg/log"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack/stacktest"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testNode struct {
	*Node
	stack   *stacktest.Recorder
	display *display.Memory
	trace   *captureTrace
}

func newTestNode(t *testing.T, mutate ...func(*Config)) *testNode {
	t.Helper()
	rec := stacktest.New()
	mem := &display.Memory{}
	tr := &captureTrace{}

	cfg := DefaultConfig()
	cfg.Display = mem
	cfg.Trace = tr
	for _, m := range mutate {
		m(&cfg)
	}

	n, err := New(rec, cfg)
	require.NoError(t, err)
	return &testNode{Node: n, stack: rec, display: mem, trace: tr}
}

// handle feeds events straight to the node.
func (tn *testNode) handle(evs ...stack.Event) {
	for _, ev := range evs {
		tn.Handle(ev)
	}
}

// bootProvisioned brings the node to PROVISIONED with LPN active and clears
// the recorded calls.
func (tn *testNode) bootProvisioned(addr stack.Address) {
	tn.handle(
		stack.Boot{},
		stack.NodeInitialized{Provisioned: true, Address: addr},
	)
	tn.stack.Clear()
	tn.display.Clear()
}

// indexOf returns the position of the first call named name, or -1.
func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

type captureTrace struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureTrace) Log(ev log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureTrace) byCategory(cat log.Category) []log.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []log.Event
	for _, ev := range c.events {
		if ev.Category == cat {
			out = append(out, ev)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// stubCommands
// ---------------------------------------------------------------------------

type stubCommands struct{ mock.Mock }

func result(args mock.Arguments) stack.Result { return args.Get(0).(stack.Result) }

func (s *stubCommands) GetBDAddr() (stack.BDAddr, stack.Result) {
	ret := s.Called()
	return ret.Get(0).(stack.BDAddr), ret.Get(1).(stack.Result)
}
func (s *stubCommands) WriteAttribute(c stack.Characteristic, off uint16, v []byte) stack.Result {
	return result(s.Called(c, off, v))
}
func (s *stubCommands) SendUserWriteResponse(h stack.Handle, c stack.Characteristic, st stack.Result) stack.Result {
	return result(s.Called(h, c, st))
}
func (s *stubCommands) NodeInit() stack.Result                   { return result(s.Called()) }
func (s *stubCommands) StartUnprovBeaconing(b stack.Bearer) stack.Result {
	return result(s.Called(b))
}
func (s *stubCommands) GenericClientInit() stack.Result          { return result(s.Called()) }
func (s *stubCommands) SceneClientInit(e uint16) stack.Result    { return result(s.Called(e)) }
func (s *stubCommands) MeshLibInit(m int) stack.Result           { return result(s.Called(m)) }
func (s *stubCommands) LPNInit() stack.Result                    { return result(s.Called()) }
func (s *stubCommands) LPNConfig(k stack.LPNConfigKey, v uint32) stack.Result {
	return result(s.Called(k, v))
}
func (s *stubCommands) LPNEstablishFriendship(t uint32) stack.Result { return result(s.Called(t)) }
func (s *stubCommands) LPNTerminateFriendship() stack.Result         { return result(s.Called()) }
func (s *stubCommands) LPNDeinit() stack.Result                      { return result(s.Called()) }
func (s *stubCommands) CloseConnection(h stack.Handle) stack.Result  { return result(s.Called(h)) }
func (s *stubCommands) SetSoftTimer(t stack.Ticks, id stack.TimerID, one bool) stack.Result {
	return result(s.Called(t, id, one))
}
func (s *stubCommands) EraseAllSettings() stack.Result   { return result(s.Called()) }
func (s *stubCommands) SystemReset(mode stack.ResetMode) { s.Called(mode) }

var _ stack.Commands = (*stubCommands)(nil)
