package sim

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lpnswitch/lpnswitch-go/pkg/gpio"
	"github.com/lpnswitch/lpnswitch-go/pkg/node"
	"github.com/lpnswitch/lpnswitch-go/pkg/persistence"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fastTick = time.Microsecond
	waitFor  = 2 * time.Second
	poll     = time.Millisecond
)

type harness struct {
	sim   *Stack
	node  *node.Node
	store *persistence.MemoryStore
	boots atomic.Int32
}

// newHarness wires a node to a fresh simulated stack and runs the dispatcher
// until the test ends. The stack is not started.
func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	h := &harness{store: &persistence.MemoryStore{}}
	if cfg.Store == nil {
		cfg.Store = h.store
	}
	cfg.TickDuration = fastTick
	h.sim = New(cfg)

	ncfg := node.DefaultConfig()
	ncfg.ResetButtons = h.sim.Buttons()
	ncfg.Indicators = h.sim.LEDs()
	n, err := node.New(h.sim, ncfg)
	require.NoError(t, err)
	h.node = n

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- node.NewDispatcher(h.sim, n).Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		_ = h.sim.Close()
		<-done
	})
	return h
}

func (h *harness) waitState(t *testing.T, s node.State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.node.Status().State == s },
		waitFor, poll, "node never reached %s (at %s)", s, h.node.Status().State)
}

func provisionedStore(t *testing.T, addr stack.Address) *persistence.MemoryStore {
	t.Helper()
	store := &persistence.MemoryStore{}
	require.NoError(t, store.Save(&persistence.NodeRecord{Provisioned: true, Address: addr, IVIndex: 3}))
	return store
}

func TestFirstBootBeacons(t *testing.T) {
	h := newHarness(t, Config{})
	h.sim.Start()

	h.waitState(t, node.StateUnprovisioned)

	st := h.sim.Status()
	assert.True(t, st.NodeInitialized)
	assert.False(t, st.Provisioned)
	assert.Equal(t, stack.BearerAdvertising|stack.BearerGATT, st.Beaconing)
	assert.Equal(t, "switch node 0a:0b", st.DeviceName)
}

func TestProvisionAndReboot(t *testing.T) {
	h := newHarness(t, Config{FriendAvailable: true})
	h.sim.Start()
	h.waitState(t, node.StateUnprovisioned)

	require.NoError(t, h.sim.Provision(0x0012, 7))
	h.waitState(t, node.StateProvisioned)

	assert.Equal(t, stack.Address(0x0012), h.node.Status().Identity.Address)
	assert.False(t, h.sim.Status().LPN, "LPN waits for the next boot")
	assert.Equal(t, [2]bool{false, false}, h.sim.Status().LEDs)

	rec, err := h.store.Load()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Provisioned)
	assert.Equal(t, uint32(7), rec.IVIndex)
	assert.Len(t, rec.DeviceKey, 16)
	assert.Equal(t, h.sim.DeviceUUID().String(), rec.DeviceUUID)

	h.sim.SystemReset(stack.ResetNormal)

	require.Eventually(t, func() bool {
		st := h.sim.Status()
		return st.LPN && st.Friend == DefaultFriendAddress
	}, waitFor, poll)
	st := h.sim.Status()
	assert.Equal(t, uint32(2), st.QueueLength)
	assert.Equal(t, uint32(5000), st.PollTimeout)
	assert.Equal(t, stack.Bearer(0), st.Beaconing)
	assert.True(t, h.node.Status().LPN.Active)
}

func TestProvisioningFailureReboots(t *testing.T) {
	h := newHarness(t, Config{})
	h.sim.Start()
	h.waitState(t, node.StateUnprovisioned)

	require.NoError(t, h.sim.FailProvisioning(stack.ResultTimeout))

	require.Eventually(t, func() bool { return len(h.sim.Status().Resets) == 1 }, waitFor, poll)
	assert.Equal(t, []stack.ResetMode{stack.ResetNormal}, h.sim.Status().Resets)
	h.waitState(t, node.StateUnprovisioned)
}

func TestResetButtonAtBootErasesSettings(t *testing.T) {
	store := provisionedStore(t, 0x0034)
	var h *harness
	h = newHarness(t, Config{
		Store: store,
		OnReset: func(stack.ResetMode) {
			_ = h.sim.Release("PB1")
		},
	})

	require.NoError(t, h.sim.Press("PB1"))
	h.sim.Start()

	require.Eventually(t, func() bool { return len(h.sim.Status().Resets) == 1 }, waitFor, poll)
	h.waitState(t, node.StateUnprovisioned)

	rec, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestConnectionSuspendsLPN(t *testing.T) {
	h := newHarness(t, Config{Store: provisionedStore(t, 0x0034), FriendAvailable: true})
	h.sim.Start()
	require.Eventually(t, func() bool { return h.sim.Status().Friend != 0 }, waitFor, poll)

	conn, err := h.sim.Connect(stack.BDAddr{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.node.Status().Conn.ActiveCount == 1 }, waitFor, poll)
	assert.False(t, h.sim.Status().LPN)
	assert.Equal(t, conn, h.node.Status().Conn.LastHandle)

	require.NoError(t, h.sim.Disconnect(conn))
	require.Eventually(t, func() bool {
		st := h.sim.Status()
		return st.LPN && st.Friend == DefaultFriendAddress
	}, waitFor, poll)
	assert.Zero(t, h.node.Status().Conn.ActiveCount)
}

func TestFriendLostIsReplaced(t *testing.T) {
	h := newHarness(t, Config{Store: provisionedStore(t, 0x0034), FriendAvailable: true})
	h.sim.Start()
	require.Eventually(t, func() bool { return h.sim.Status().Friend != 0 }, waitFor, poll)

	require.NoError(t, h.sim.LoseFriend(stack.ResultTimeout))
	assert.Zero(t, h.sim.Status().Friend)

	// The node retries after its friend retry delay.
	require.Eventually(t, func() bool { return h.sim.Status().Friend != 0 }, waitFor, poll)
}

func TestOTAWriteRebootsIntoDFU(t *testing.T) {
	h := newHarness(t, Config{Store: provisionedStore(t, 0x0034)})
	h.sim.Start()
	h.waitState(t, node.StateProvisioned)

	conn, err := h.sim.Connect(stack.BDAddr{9})
	require.NoError(t, err)
	require.NoError(t, h.sim.RequestDFU(conn))

	require.Eventually(t, func() bool { return len(h.sim.Status().Resets) == 1 }, waitFor, poll)
	st := h.sim.Status()
	assert.Equal(t, stack.ResetDFU, st.Resets[0])
	require.Len(t, st.Responses, 1)
	assert.Equal(t, WriteResponse{Connection: conn, Characteristic: stack.CharOTAControl}, st.Responses[0])
}

func TestNodeResetFromProvisioner(t *testing.T) {
	h := newHarness(t, Config{})
	require.ErrorIs(t, h.sim.RequestNodeReset(), ErrNotProvisioned)

	h2 := newHarness(t, Config{Store: provisionedStore(t, 0x0034)})
	h2.sim.Start()
	h2.waitState(t, node.StateProvisioned)

	require.NoError(t, h2.sim.RequestNodeReset())
	require.Eventually(t, func() bool { return len(h2.sim.Status().Resets) == 1 }, waitFor, poll)
	h2.waitState(t, node.StateUnprovisioned)
}

func TestFilterConsumesRetransmissionTimers(t *testing.T) {
	s := New(Config{})
	for _, id := range []stack.TimerID{
		stack.TimerRetransOnOff, stack.TimerRetransLightness,
		stack.TimerRetransCTL, stack.TimerRetransScene,
	} {
		assert.False(t, s.Filter(stack.SoftTimerElapsed{Timer: id}), id.String())
	}
	assert.True(t, s.Filter(stack.SoftTimerElapsed{Timer: stack.TimerFriendFind}))
	assert.True(t, s.Filter(stack.Boot{}))
}

func TestButtonEdgeRaisesExternalSignal(t *testing.T) {
	s := New(Config{})
	defer s.Close()

	require.NoError(t, s.Press("PB0"))

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	ev, err := s.WaitEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, stack.ExternalSignal{Signals: gpio.SignalPB0Rising}, ev)

	assert.ErrorIs(t, s.Press("PB7"), ErrUnknownButton)
}

func TestCommandsCheckState(t *testing.T) {
	s := New(Config{})
	defer s.Close()

	assert.Equal(t, stack.ResultWrongState, s.LPNInit())
	assert.Equal(t, stack.ResultWrongState, s.MeshLibInit(8))
	assert.Equal(t, stack.ResultWrongState, s.StartUnprovBeaconing(stack.BearerGATT))
	assert.Equal(t, stack.ResultNotFound, s.CloseConnection(3))
	assert.Equal(t, stack.ResultNotFound, s.SendUserWriteResponse(3, stack.CharOTAControl, 0))

	require.Equal(t, stack.ResultSuccess, s.NodeInit())
	assert.Equal(t, stack.ResultWrongState, s.NodeInit())
	assert.Equal(t, stack.ResultInvalidParam, s.StartUnprovBeaconing(0))
}

func TestLPNConfigLimits(t *testing.T) {
	s := New(Config{Store: provisionedStore(t, 0x0034)})
	defer s.Close()

	require.Equal(t, stack.ResultSuccess, s.NodeInit())
	require.Equal(t, stack.ResultSuccess, s.LPNInit())

	assert.Equal(t, stack.ResultInvalidParam, s.LPNConfig(stack.LPNQueueLength, 1))
	assert.Equal(t, stack.ResultInvalidParam, s.LPNConfig(stack.LPNPollTimeout, 999))
	assert.Equal(t, stack.ResultSuccess, s.LPNConfig(stack.LPNQueueLength, 128))
	assert.Equal(t, stack.ResultSuccess, s.LPNConfig(stack.LPNPollTimeout, 1000))

	assert.Equal(t, stack.ResultSuccess, s.LPNEstablishFriendship(0))
	<-s.events // node initialized
	ev := <-s.events
	assert.Equal(t, stack.FriendshipFailed{Reason: stack.ResultTimeout}, ev)
}

func TestWaitEventAfterClose(t *testing.T) {
	s := New(Config{})
	s.Start()
	require.NoError(t, s.Close())

	_, err := s.WaitEvent(context.Background())
	assert.ErrorIs(t, err, stack.ErrStopped)
	assert.ErrorIs(t, s.Inject(stack.Boot{}), stack.ErrStopped)
	assert.Equal(t, stack.ResultInvalidState, s.SetSoftTimer(10, stack.TimerRestart, true))
}

func TestQueueOverflowDropsEvents(t *testing.T) {
	s := New(Config{QueueSize: 2})
	defer s.Close()

	require.NoError(t, s.Inject(stack.Boot{}))
	require.NoError(t, s.Inject(stack.Boot{}))
	assert.ErrorIs(t, s.Inject(stack.Boot{}), ErrQueueFull)
	assert.Equal(t, 1, s.Dropped())
}

func TestDeviceUUIDIsStable(t *testing.T) {
	a := New(Config{Addr: stack.BDAddr{1, 2, 3, 4, 5, 6}})
	b := New(Config{Addr: stack.BDAddr{1, 2, 3, 4, 5, 6}})
	c := New(Config{Addr: stack.BDAddr{6, 5, 4, 3, 2, 1}})

	assert.Equal(t, a.DeviceUUID(), b.DeviceUUID())
	assert.NotEqual(t, a.DeviceUUID(), c.DeviceUUID())
	assert.Equal(t, uuid.Version(5), a.DeviceUUID().Version())
}
