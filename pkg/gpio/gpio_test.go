package gpio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestButtonPressed(t *testing.T) {
	tests := []struct {
		name      string
		high      bool
		activeLow bool
		want      bool
	}{
		{"active low held", false, true, true},
		{"active low released", true, true, false},
		{"active high held", true, false, true},
		{"active high released", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Button{Pin: NewSimPin(tt.high), ActiveLow: tt.activeLow}
			assert.Equal(t, tt.want, b.Pressed())
		})
	}
}

func TestAnyPressed(t *testing.T) {
	pb0 := NewSimPin(true)
	pb1 := NewSimPin(true)
	buttons := []Button{
		{Name: "PB0", Pin: pb0, ActiveLow: true},
		{Name: "PB1", Pin: pb1, ActiveLow: true},
	}

	assert.False(t, AnyPressed(buttons))
	pb1.Set(false)
	assert.True(t, AnyPressed(buttons))
	assert.False(t, AnyPressed(nil))
	assert.False(t, Button{}.Pressed())
}

func TestSimLEDToggle(t *testing.T) {
	var led SimLED
	led.Toggle()
	assert.True(t, led.On())
	led.Toggle()
	assert.False(t, led.On())
	led.Set(true)
	assert.True(t, led.On())
	assert.Equal(t, 2, led.Toggles())
}

func TestSignalQueueOrder(t *testing.T) {
	q := NewSignalQueue()
	require.True(t, q.Push(SignalPB0Rising))
	require.True(t, q.Push(SignalPB0Falling))
	assert.Equal(t, 2, q.Len())

	s, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, SignalPB0Rising, s)
	s, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, SignalPB0Falling, s)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestSignalQueueFull(t *testing.T) {
	q := NewSignalQueue()
	for i := 0; i < QueueCapacity; i++ {
		require.True(t, q.Push(SignalPB0Rising))
	}

	assert.False(t, q.Push(SignalPB0Falling))
	assert.Equal(t, 1, q.Dropped())
	assert.Equal(t, QueueCapacity, q.Len())

	mask, ok := q.Drain()
	require.True(t, ok)
	assert.Equal(t, SignalPB0Rising, mask)
	assert.Zero(t, q.Len())
}

func TestSignalQueueDrainEmpty(t *testing.T) {
	q := NewSignalQueue()
	mask, ok := q.Drain()
	assert.False(t, ok)
	assert.Zero(t, mask)
}

func TestSignalQueueNotify(t *testing.T) {
	q := NewSignalQueue()
	q.Push(SignalPB0Rising)
	q.Push(SignalPB0Falling)

	select {
	case <-q.Notify():
	default:
		t.Fatal("expected a pending notification")
	}
	select {
	case <-q.Notify():
		t.Fatal("pushes should collapse into one notification")
	default:
	}
}

func TestProducerOnEdge(t *testing.T) {
	pin := NewSimPin(true)
	q := NewSignalQueue()
	p := &Producer{Pin: pin, Queue: q}

	p.OnEdge()
	pin.Set(false)
	p.OnEdge()

	s, _ := q.Pop()
	assert.Equal(t, SignalPB0Falling, s, "high level")
	s, _ = q.Pop()
	assert.Equal(t, SignalPB0Rising, s, "low level")
}

func TestProducerOnEdgeDoesNotAllocate(t *testing.T) {
	p := &Producer{Pin: NewSimPin(false), Queue: NewSignalQueue()}

	allocs := testing.AllocsPerRun(100, func() {
		p.OnEdge()
		p.Queue.Pop()
	})
	assert.Zero(t, allocs)
}

func TestSignalQueueConcurrent(t *testing.T) {
	q := NewSignalQueue()
	const n = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !q.Push(uint32(i)) {
			}
		}
	}()

	got := make([]uint32, 0, n)
	for len(got) < n {
		if s, ok := q.Pop(); ok {
			got = append(got, s)
		}
	}
	wg.Wait()

	for i, s := range got {
		if s != uint32(i) {
			t.Fatalf("got[%d] = %d, signals out of order", i, s)
		}
	}
}
