// Package stacktest provides a recording stack.Stack for tests.
package stacktest

import (
	"context"
	"sync"

	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// Call is one recorded command invocation.
type Call struct {
	// Name is one of the stack.Cmd* names.
	Name string

	// Args holds the command arguments in declaration order.
	Args []any
}

// Recorder is a stack.Stack that records every command and serves events
// pushed by the test. Commands succeed unless a result is forced with
// SetResult. It never generates events on its own.
type Recorder struct {
	// Addr is returned by GetBDAddr.
	Addr stack.BDAddr

	// FilterFunc, when set, replaces the default pass-everything filter.
	FilterFunc func(stack.Event) bool

	mu      sync.Mutex
	calls   []Call
	results map[string]stack.Result
	events  chan stack.Event
}

// Compile-time interface satisfaction check.
var _ stack.Stack = (*Recorder)(nil)

// New creates a Recorder with room for 64 queued events.
func New() *Recorder {
	return &Recorder{
		Addr:    stack.BDAddr{0x0b, 0x0a, 0x57, 0x0b, 0x57, 0x00},
		results: make(map[string]stack.Result),
		events:  make(chan stack.Event, 64),
	}
}

// Push queues events for WaitEvent.
func (r *Recorder) Push(evs ...stack.Event) {
	for _, ev := range evs {
		r.events <- ev
	}
}

// SetResult forces the result returned by the named command.
func (r *Recorder) SetResult(name string, res stack.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[name] = res
}

// Calls returns a copy of all recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Names returns the recorded command names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Name
	}
	return out
}

// Count returns how many times the named command was issued.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// CallsNamed returns the recorded calls with the given name.
func (r *Recorder) CallsNamed(name string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// TimerCalls returns the SetSoftTimer calls for id.
func (r *Recorder) TimerCalls(id stack.TimerID) []Call {
	var out []Call
	for _, c := range r.CallsNamed(stack.CmdSetSoftTimer) {
		if c.Args[1].(stack.TimerID) == id {
			out = append(out, c)
		}
	}
	return out
}

// Clear forgets all recorded calls. Forced results are kept.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) record(name string, args ...any) stack.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Name: name, Args: args})
	return r.results[name]
}

// WaitEvent returns the next pushed event or ctx's error.
func (r *Recorder) WaitEvent(ctx context.Context) (stack.Event, error) {
	select {
	case ev := <-r.events:
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Filter passes every event unless FilterFunc is set.
func (r *Recorder) Filter(ev stack.Event) bool {
	if r.FilterFunc != nil {
		return r.FilterFunc(ev)
	}
	return true
}

func (r *Recorder) GetBDAddr() (stack.BDAddr, stack.Result) {
	return r.Addr, r.record(stack.CmdGetBDAddr)
}

func (r *Recorder) WriteAttribute(char stack.Characteristic, offset uint16, value []byte) stack.Result {
	v := make([]byte, len(value))
	copy(v, value)
	return r.record(stack.CmdWriteAttribute, char, offset, v)
}

func (r *Recorder) SendUserWriteResponse(conn stack.Handle, char stack.Characteristic, status stack.Result) stack.Result {
	return r.record(stack.CmdSendUserWriteResponse, conn, char, status)
}

func (r *Recorder) NodeInit() stack.Result {
	return r.record(stack.CmdNodeInit)
}

func (r *Recorder) StartUnprovBeaconing(bearers stack.Bearer) stack.Result {
	return r.record(stack.CmdStartUnprovBeaconing, bearers)
}

func (r *Recorder) GenericClientInit() stack.Result {
	return r.record(stack.CmdGenericClientInit)
}

func (r *Recorder) SceneClientInit(elemIndex uint16) stack.Result {
	return r.record(stack.CmdSceneClientInit, elemIndex)
}

func (r *Recorder) MeshLibInit(maxModels int) stack.Result {
	return r.record(stack.CmdMeshLibInit, maxModels)
}

func (r *Recorder) LPNInit() stack.Result {
	return r.record(stack.CmdLPNInit)
}

func (r *Recorder) LPNConfig(key stack.LPNConfigKey, value uint32) stack.Result {
	return r.record(stack.CmdLPNConfig, key, value)
}

func (r *Recorder) LPNEstablishFriendship(timeout uint32) stack.Result {
	return r.record(stack.CmdLPNEstablishFriendship, timeout)
}

func (r *Recorder) LPNTerminateFriendship() stack.Result {
	return r.record(stack.CmdLPNTerminateFriendship)
}

func (r *Recorder) LPNDeinit() stack.Result {
	return r.record(stack.CmdLPNDeinit)
}

func (r *Recorder) CloseConnection(conn stack.Handle) stack.Result {
	return r.record(stack.CmdCloseConnection, conn)
}

func (r *Recorder) SetSoftTimer(ticks stack.Ticks, id stack.TimerID, singleShot bool) stack.Result {
	return r.record(stack.CmdSetSoftTimer, ticks, id, singleShot)
}

func (r *Recorder) EraseAllSettings() stack.Result {
	return r.record(stack.CmdEraseAllSettings)
}

func (r *Recorder) SystemReset(mode stack.ResetMode) {
	r.record(stack.CmdSystemReset, mode)
}
