package runner

import (
	"context"
	"fmt"
	"slices"

	"github.com/lpnswitch/lpnswitch-go/internal/testharness/engine"
	"github.com/lpnswitch/lpnswitch-go/internal/testharness/loader"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// registerHandlers registers the node action handlers.
func (r *Runner) registerHandlers() {
	r.engine.RegisterHandler(ActionEvent, r.handleEvent)
	r.engine.RegisterHandler(ActionElapse, r.handleElapse)
	r.engine.RegisterHandler(ActionPress, r.handlePress)
	r.engine.RegisterHandler(ActionRelease, r.handleRelease)
	r.engine.RegisterHandler(ActionFailCommand, r.handleFailCommand)
	r.engine.RegisterHandler(ActionClearCommands, r.handleClearCommands)
	r.engine.RegisterHandler(ActionSnapshot, r.handleSnapshot)
}

// handleEvent dispatches one stack event, or the same event repeat times.
func (r *Runner) handleEvent(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	s, err := sessionFrom(state)
	if err != nil {
		return nil, err
	}

	ev, err := buildEvent(step.Params)
	if err != nil {
		return nil, err
	}

	repeat := 1
	if v, ok := step.Params[ParamRepeat]; ok {
		n, err := toUint(v, 16)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("param %s: invalid count %v", ParamRepeat, v)
		}
		repeat = int(n)
	}

	for i := 0; i < repeat; i++ {
		if err := s.dispatch(ctx, ev); err != nil {
			return nil, fmt.Errorf("dispatch %s: %w", ev.ID(), err)
		}
	}
	return s.snapshot(), nil
}

// handleElapse fires a soft timer expiry.
func (r *Runner) handleElapse(ctx context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	s, err := sessionFrom(state)
	if err != nil {
		return nil, err
	}

	p := &paramReader{params: step.Params}
	id := p.timer(ParamTimer)
	if p.err != nil {
		return nil, p.err
	}

	if err := s.dispatch(ctx, stack.SoftTimerElapsed{Timer: id}); err != nil {
		return nil, err
	}
	return s.snapshot(), nil
}

func (r *Runner) handlePress(_ context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	return r.setButton(step, state, false)
}

func (r *Runner) handleRelease(_ context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	return r.setButton(step, state, true)
}

// setButton drives the button's pull-up input. A held button reads low.
func (r *Runner) setButton(step *loader.Step, state *engine.ExecutionState, high bool) (map[string]any, error) {
	s, err := sessionFrom(state)
	if err != nil {
		return nil, err
	}

	name, _ := step.Params[ParamButton].(string)
	pin, err := s.pin(name)
	if err != nil {
		return nil, err
	}
	pin.Set(high)
	return s.snapshot(), nil
}

// handleFailCommand forces the result of a command. A result of 0 makes
// the command succeed again.
func (r *Runner) handleFailCommand(_ context.Context, step *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	s, err := sessionFrom(state)
	if err != nil {
		return nil, err
	}

	name, _ := step.Params[ParamCommand].(string)
	if !slices.Contains(stack.CommandNames, name) {
		return nil, fmt.Errorf("unknown command %q", name)
	}

	res := stack.ResultInvalidState
	if v, ok := step.Params[ParamResult]; ok {
		if res, err = parseResult(v); err != nil {
			return nil, fmt.Errorf("param %s: %w", ParamResult, err)
		}
	}
	s.rec.SetResult(name, res)
	return s.snapshot(), nil
}

// handleClearCommands forgets the commands recorded so far, so the next
// step's expectations only see what it caused.
func (r *Runner) handleClearCommands(_ context.Context, _ *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	s, err := sessionFrom(state)
	if err != nil {
		return nil, err
	}
	s.rec.Clear()
	return s.snapshot(), nil
}

func (r *Runner) handleSnapshot(_ context.Context, _ *loader.Step, state *engine.ExecutionState) (map[string]any, error) {
	s, err := sessionFrom(state)
	if err != nil {
		return nil, err
	}
	return s.snapshot(), nil
}
