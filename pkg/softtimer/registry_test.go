package softtimer

import (
	"testing"

	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

func TestRegistryStartReplaces(t *testing.T) {
	r := NewRegistry()

	r.Start(stack.TimerFriendFind, stack.MsToTicks(2000), true)
	r.Start(stack.TimerFriendFind, stack.MsToTicks(500), false)

	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	e, ok := r.Get(stack.TimerFriendFind)
	if !ok {
		t.Fatal("Get() ok = false")
	}
	if e.Ticks != stack.MsToTicks(500) || e.OneShot {
		t.Errorf("entry = %+v, want replaced periodic 500ms", e)
	}
}

func TestRegistryStopSentinel(t *testing.T) {
	r := NewRegistry()
	r.Start(stack.TimerProvisioning, stack.TicksPerSecond/4, false)

	r.Start(stack.TimerProvisioning, stack.TimerStop, false)

	if r.Running(stack.TimerProvisioning) {
		t.Error("timer should be stopped by zero ticks")
	}
	if r.Stop(stack.TimerProvisioning) {
		t.Error("Stop() on stopped timer should report false")
	}
}

func TestRegistryElapsed(t *testing.T) {
	r := NewRegistry()
	r.Start(stack.TimerRestart, 2*stack.TicksPerSecond, true)
	r.Start(stack.TimerProvisioning, stack.TicksPerSecond/4, false)

	r.Elapsed(stack.TimerRestart)
	r.Elapsed(stack.TimerProvisioning)

	if r.Running(stack.TimerRestart) {
		t.Error("one-shot timer should be removed after expiry")
	}
	if !r.Running(stack.TimerProvisioning) {
		t.Error("periodic timer should stay armed after expiry")
	}
}

func TestRegistryEntriesOrdered(t *testing.T) {
	r := NewRegistry()
	r.Start(stack.TimerRestart, 1, true)
	r.Start(stack.TimerFriendFind, 1, true)
	r.Start(stack.TimerProvisioning, 1, false)

	entries := r.Entries()
	want := []stack.TimerID{stack.TimerFriendFind, stack.TimerProvisioning, stack.TimerRestart}
	for i, id := range want {
		if entries[i].ID != id {
			t.Errorf("Entries()[%d] = %s, want %s", i, entries[i].ID, id)
		}
	}

	r.Clear()
	if r.Len() != 0 {
		t.Errorf("Len() after Clear = %d", r.Len())
	}
}
