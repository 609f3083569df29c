package runner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/lpnswitch/lpnswitch-go/internal/testharness/engine"
	"github.com/lpnswitch/lpnswitch-go/internal/testharness/loader"
	"github.com/lpnswitch/lpnswitch-go/pkg/display"
	"github.com/lpnswitch/lpnswitch-go/pkg/gpio"
	"github.com/lpnswitch/lpnswitch-go/pkg/node"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack/stacktest"
)

// Button names understood by scenarios.
const (
	ButtonPB0 = "PB0"
	ButtonPB1 = "PB1"
)

// ErrNoSession is returned by handlers run outside a prepared scenario.
var ErrNoSession = errors.New("no node session")

// session is one node under test together with the recording stack that
// stands in for the radio firmware.
type session struct {
	rec     *stacktest.Recorder
	node    *node.Node
	disp    *node.Dispatcher
	pins    map[string]*gpio.SimPin
	leds    []*gpio.SimLED
	display *display.Memory
}

// newSession builds the node described by setup. Buttons in ButtonsHeld
// start pressed, so a boot event sees them held.
func (r *Runner) newSession(tc *loader.TestCase) (*session, error) {
	setup := tc.Node

	rec := stacktest.New()
	if setup.BDAddr != "" {
		addr, err := stack.ParseBDAddr(setup.BDAddr)
		if err != nil {
			return nil, err
		}
		rec.Addr = addr
	}
	if setup.FilterRetransmissions {
		rec.FilterFunc = consumeRetransmissions
	}
	for name, code := range setup.Fail {
		res, err := parseResult(code)
		if err != nil {
			return nil, fmt.Errorf("fail %s: %w", name, err)
		}
		if !slices.Contains(stack.CommandNames, name) {
			return nil, fmt.Errorf("fail: unknown command %q", name)
		}
		rec.SetResult(name, res)
	}

	s := &session{
		rec: rec,
		pins: map[string]*gpio.SimPin{
			ButtonPB0: gpio.NewSimPin(true),
			ButtonPB1: gpio.NewSimPin(true),
		},
		leds:    []*gpio.SimLED{{}, {}},
		display: &display.Memory{},
	}
	for _, b := range setup.ButtonsHeld {
		pin, err := s.pin(b)
		if err != nil {
			return nil, err
		}
		pin.Set(false)
	}

	cfg := node.DefaultConfig()
	cfg.EnterLPNOnProvisioned = setup.EnterLPNOnProvisioned
	cfg.ResetButtons = []gpio.Button{
		{Name: ButtonPB0, Pin: s.pins[ButtonPB0], ActiveLow: true},
		{Name: ButtonPB1, Pin: s.pins[ButtonPB1], ActiveLow: true},
	}
	cfg.Indicators = []gpio.LED{s.leds[0], s.leds[1]}
	cfg.Display = s.display
	cfg.Logger = r.config.Logger
	cfg.Trace = r.config.Trace
	cfg.SessionID = tc.ID

	n, err := node.New(rec, cfg)
	if err != nil {
		return nil, err
	}
	s.node = n
	s.disp = node.NewDispatcher(rec, n)
	return s, nil
}

// consumeRetransmissions mimics the mesh library claiming its own
// retransmission timers.
func consumeRetransmissions(ev stack.Event) bool {
	t, ok := ev.(stack.SoftTimerElapsed)
	return !ok || !t.Timer.IsRetransmission()
}

func (s *session) pin(name string) (*gpio.SimPin, error) {
	pin, ok := s.pins[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("unknown button %q", name)
	}
	return pin, nil
}

// dispatch pushes ev and runs it through one dispatcher step.
func (s *session) dispatch(ctx context.Context, ev stack.Event) error {
	s.rec.Push(ev)
	return s.disp.Step(ctx)
}

// snapshot collects the outputs every node-facing action reports.
func (s *session) snapshot() map[string]any {
	st := s.node.Status()

	counts := make(map[string]int)
	for _, name := range s.rec.Names() {
		counts[name]++
	}

	timers := make(map[string]any, len(st.Timers))
	for _, e := range st.Timers {
		timers[e.ID.String()] = map[string]any{
			TimerFieldTicks:      int(e.Ticks),
			TimerFieldSingleShot: e.OneShot,
		}
	}

	rows := s.display.Rows()
	screen := make(map[string]string, len(rows))
	for i, text := range rows {
		screen[display.Row(i).String()] = text
	}

	resetMode := ""
	if resets := s.rec.CallsNamed(stack.CmdSystemReset); len(resets) > 0 {
		resetMode = resets[len(resets)-1].Args[0].(stack.ResetMode).String()
	}

	return map[string]any{
		OutputState:                st.State.String(),
		OutputElementIndex:         int(st.Identity.ElementIndex),
		OutputAddress:              st.Identity.Address.String(),
		OutputIdentityAssigned:     st.Identity.Assigned(),
		OutputConnections:          int(st.Conn.ActiveCount),
		OutputLastHandle:           int(st.Conn.LastHandle),
		OutputLPNActive:            st.LPN.Active,
		OutputPendingDFU:           st.PendingDFU,
		OutputName:                 st.Name,
		OutputResetMode:            resetMode,
		OutputLEDToggles:           s.leds[0].Toggles(),
		OutputDispatched:           int(s.disp.Dispatched()),
		OutputFiltered:             int(s.disp.Filtered()),
		engine.OutputCommands:      s.rec.Names(),
		engine.OutputCommandCounts: counts,
		engine.OutputTimers:        timers,
		engine.OutputDisplay:       screen,
	}
}

func (r *Runner) setupSession(_ context.Context, tc *loader.TestCase, state *engine.ExecutionState) error {
	s, err := r.newSession(tc)
	if err != nil {
		return err
	}
	state.Custom[sessionKey] = s
	return nil
}

func (r *Runner) teardownSession(_ *loader.TestCase, state *engine.ExecutionState) {
	delete(state.Custom, sessionKey)
}

func sessionFrom(state *engine.ExecutionState) (*session, error) {
	s, ok := state.Custom[sessionKey].(*session)
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}
