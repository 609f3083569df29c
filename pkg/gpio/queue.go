package gpio

import "sync/atomic"

// Signal bits raised by the button interrupt.
const (
	SignalPB0Rising  uint32 = 1 << 1
	SignalPB0Falling uint32 = 1 << 2
)

// QueueCapacity is the number of signals a SignalQueue holds.
const QueueCapacity = 16

// SignalQueue is a bounded single-producer/single-consumer ring of signal
// bits. Push may be called from interrupt context: it never blocks,
// never allocates and drops the signal when the ring is full.
type SignalQueue struct {
	buf [QueueCapacity]uint32

	// head is the next slot to read, tail the next slot to write.
	// Both only grow; the slot index is the value modulo QueueCapacity.
	head atomic.Uint32
	tail atomic.Uint32

	dropped atomic.Uint32
	notify  chan struct{}
}

// NewSignalQueue creates an empty queue.
func NewSignalQueue() *SignalQueue {
	return &SignalQueue{notify: make(chan struct{}, 1)}
}

// Push appends a signal. It reports false when the queue was full.
func (q *SignalQueue) Push(signal uint32) bool {
	t := q.tail.Load()
	if t-q.head.Load() == QueueCapacity {
		q.dropped.Add(1)
		return false
	}
	q.buf[t%QueueCapacity] = signal
	q.tail.Store(t + 1)

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Pop removes the oldest signal. Only the consumer goroutine may call it.
func (q *SignalQueue) Pop() (uint32, bool) {
	h := q.head.Load()
	if h == q.tail.Load() {
		return 0, false
	}
	s := q.buf[h%QueueCapacity]
	q.head.Store(h + 1)
	return s, true
}

// Drain removes every queued signal and returns them OR-ed together.
// It reports false when the queue was empty.
func (q *SignalQueue) Drain() (uint32, bool) {
	var mask uint32
	got := false
	for {
		s, ok := q.Pop()
		if !ok {
			return mask, got
		}
		mask |= s
		got = true
	}
}

// Len returns the number of queued signals.
func (q *SignalQueue) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Dropped returns how many signals were lost to a full queue.
func (q *SignalQueue) Dropped() int {
	return int(q.dropped.Load())
}

// Notify is signalled after each successful Push. It has a buffer of one,
// so several pushes may collapse into a single wakeup.
func (q *SignalQueue) Notify() <-chan struct{} {
	return q.notify
}

// Producer converts button edges into signals.
type Producer struct {
	Pin   Pin
	Queue *SignalQueue
}

// OnEdge is the edge interrupt handler. A high level raises
// SignalPB0Falling and a low level raises SignalPB0Rising.
func (p *Producer) OnEdge() {
	if p.Pin.Get() {
		p.Queue.Push(SignalPB0Falling)
	} else {
		p.Queue.Push(SignalPB0Rising)
	}
}
