package node

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// Dispatcher is the node's main loop.
type Dispatcher struct {
	src  stack.EventSource
	node *Node

	dispatched atomic.Uint64
	filtered   atomic.Uint64
}

// NewDispatcher creates a dispatcher feeding events from src to node.
func NewDispatcher(src stack.EventSource, node *Node) *Dispatcher {
	return &Dispatcher{src: src, node: node}
}

// Run dispatches events until ctx is cancelled or the stack stops, which
// both return nil. Any other event source error is returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		err := d.Step(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil, errors.Is(err, stack.ErrStopped):
			return nil
		default:
			return err
		}
	}
}

// Step waits for one event and dispatches it. An event the stack filter
// consumes is not dispatched.
func (d *Dispatcher) Step(ctx context.Context) error {
	ev, err := d.src.WaitEvent(ctx)
	if err != nil {
		return err
	}
	if ev == nil {
		return nil
	}

	if !d.src.Filter(ev) {
		d.filtered.Add(1)
		d.node.cfg.Metrics.EventFiltered()
		d.node.debugLog("event consumed by stack", "event", ev.ID().String())
		return nil
	}

	d.dispatched.Add(1)
	d.node.Handle(ev)
	return nil
}

// Dispatched returns the number of events handed to the node.
func (d *Dispatcher) Dispatched() uint64 {
	return d.dispatched.Load()
}

// Filtered returns the number of events the stack consumed.
func (d *Dispatcher) Filtered() uint64 {
	return d.filtered.Load()
}
