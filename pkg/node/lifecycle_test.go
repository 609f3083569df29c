package node

import (
	"testing"

	"github.com/lpnswitch/lpnswitch-go/pkg/display"
	"github.com/lpnswitch/lpnswitch-go/pkg/gpio"
	"github.com/lpnswitch/lpnswitch-go/pkg/log"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootStartsMeshNode(t *testing.T) {
	tn := newTestNode(t)

	tn.handle(stack.Boot{Major: 2, Minor: 13})

	assert.Equal(t, []string{
		stack.CmdGetBDAddr,
		stack.CmdWriteAttribute,
		stack.CmdNodeInit,
	}, tn.stack.Names())

	write := tn.stack.CallsNamed(stack.CmdWriteAttribute)[0]
	assert.Equal(t, stack.CharDeviceName, write.Args[0])
	assert.Equal(t, []byte("switch node 0a:0b"), write.Args[2])

	assert.Equal(t, "switch node 0a:0b", tn.display.Row(display.RowName))
	assert.Equal(t, StateInitializing, tn.Status().State)
	assert.Equal(t, "switch node 0a:0b", tn.Status().Name)
}

func TestBootWithResetButtonHeld(t *testing.T) {
	pb0 := gpio.NewSimPin(true)
	pb1 := gpio.NewSimPin(false) // held
	tn := newTestNode(t, func(c *Config) {
		c.ResetButtons = []gpio.Button{
			{Name: "PB0", Pin: pb0, ActiveLow: true},
			{Name: "PB1", Pin: pb1, ActiveLow: true},
		}
	})

	tn.handle(stack.Boot{})

	assert.Zero(t, tn.stack.Count(stack.CmdNodeInit))
	assert.Zero(t, tn.stack.Count(stack.CmdGetBDAddr))
	assert.Zero(t, tn.stack.Count(stack.CmdCloseConnection), "no connection is open after boot")
	assert.Equal(t, 1, tn.stack.Count(stack.CmdEraseAllSettings))

	timers := tn.stack.TimerCalls(stack.TimerFactoryReset)
	require.Len(t, timers, 1)
	assert.Equal(t, []any{2 * stack.TicksPerSecond, stack.TimerFactoryReset, true}, timers[0].Args)

	assert.Equal(t, StateFactoryReset, tn.Status().State)
	assert.Equal(t, display.TextFactoryReset, tn.display.Row(display.RowStatus))

	tn.stack.Clear()
	tn.handle(stack.SoftTimerElapsed{Timer: stack.TimerFactoryReset})
	resets := tn.stack.CallsNamed(stack.CmdSystemReset)
	require.Len(t, resets, 1)
	assert.Equal(t, stack.ResetNormal, resets[0].Args[0])
}

func TestBootNodeInitFailureShown(t *testing.T) {
	tn := newTestNode(t)
	tn.stack.SetResult(stack.CmdNodeInit, stack.ResultInvalidState)

	tn.handle(stack.Boot{})

	assert.Equal(t, "init failed (0x0181)", tn.display.Row(display.RowStatus))
}

func TestBootResetsContext(t *testing.T) {
	tn := newTestNode(t)
	tn.bootProvisioned(0x0034)
	tn.handle(stack.ConnectionOpened{Connection: 3})
	require.Equal(t, uint8(1), tn.Status().Conn.ActiveCount)

	tn.handle(stack.Boot{})

	st := tn.Status()
	assert.Equal(t, StateInitializing, st.State)
	assert.Zero(t, st.Conn.ActiveCount)
	assert.Equal(t, stack.NoHandle, st.Conn.LastHandle)
	assert.False(t, st.Identity.Assigned())
	assert.False(t, st.LPN.Active)
	assert.Empty(t, st.Timers)
}

func TestUnprovisionedToProvisioned(t *testing.T) {
	tn := newTestNode(t)

	tn.handle(
		stack.Boot{},
		stack.NodeInitialized{Provisioned: false},
	)
	assert.Equal(t, StateUnprovisioned, tn.Status().State)
	assert.Equal(t, display.TextUnprovisioned, tn.display.Row(display.RowStatus))
	beacons := tn.stack.CallsNamed(stack.CmdStartUnprovBeaconing)
	require.Len(t, beacons, 1)
	assert.Equal(t, stack.BearerAdvertising|stack.BearerGATT, beacons[0].Args[0])

	tn.handle(stack.ProvisioningStarted{})
	assert.Equal(t, StateUnprovisioned, tn.Status().State, "provisioning start does not change state")
	blink := tn.stack.TimerCalls(stack.TimerProvisioning)
	require.Len(t, blink, 1)
	assert.Equal(t, []any{stack.TicksPerSecond / 4, stack.TimerProvisioning, false}, blink[0].Args)

	beforeProvisioned := len(tn.stack.Names())
	tn.handle(stack.Provisioned{Address: 0x0012})

	st := tn.Status()
	assert.Equal(t, StateProvisioned, st.State)
	assert.Equal(t, Identity{ElementIndex: 0, Address: 0x0012}, st.Identity)
	assert.Equal(t, 1, tn.stack.Count(stack.CmdGenericClientInit))
	assert.Equal(t, 1, tn.stack.Count(stack.CmdSceneClientInit))
	assert.Equal(t, 1, tn.stack.Count(stack.CmdMeshLibInit))
	assert.Equal(t, display.TextProvisioned, tn.display.Row(display.RowStatus))

	after := tn.stack.Names()[beforeProvisioned:]
	assert.Equal(t, -1, indexOf(after, stack.CmdStartUnprovBeaconing))
	assert.Zero(t, tn.stack.Count(stack.CmdLPNInit), "LPN is not entered right after provisioning")

	_, blinking := st.TimerArmed(stack.TimerProvisioning)
	assert.False(t, blinking, "blink timer stops once provisioned")
}

func TestProvisionedEntersLPNWhenConfigured(t *testing.T) {
	tn := newTestNode(t, func(c *Config) { c.EnterLPNOnProvisioned = true })

	tn.handle(
		stack.Boot{},
		stack.NodeInitialized{},
		stack.Provisioned{Address: 0x0012},
	)

	assert.Equal(t, 1, tn.stack.Count(stack.CmdLPNInit))
	assert.True(t, tn.Status().LPN.Active)
}

func TestAlreadyProvisionedAtBoot(t *testing.T) {
	tn := newTestNode(t)

	tn.handle(
		stack.Boot{},
		stack.NodeInitialized{Provisioned: true, Address: 0x0034, IVIndex: 5},
	)

	st := tn.Status()
	assert.Equal(t, StateProvisioned, st.State)
	assert.Equal(t, Identity{ElementIndex: 0, Address: 0x0034}, st.Identity)
	assert.Equal(t, 1, tn.stack.Count(stack.CmdGenericClientInit))
	assert.Equal(t, 1, tn.stack.Count(stack.CmdSceneClientInit))
	assert.Equal(t, 1, tn.stack.Count(stack.CmdLPNInit))
	assert.Zero(t, tn.stack.Count(stack.CmdStartUnprovBeaconing))
	assert.True(t, st.LPN.Active)

	names := tn.stack.Names()
	assert.Less(t, indexOf(names, stack.CmdSceneClientInit), indexOf(names, stack.CmdMeshLibInit))
	assert.Less(t, indexOf(names, stack.CmdMeshLibInit), indexOf(names, stack.CmdLPNInit))

	mesh := tn.stack.CallsNamed(stack.CmdMeshLibInit)
	assert.Equal(t, 8, mesh[0].Args[0])
}

func TestIdentityIsNotReassigned(t *testing.T) {
	tn := newTestNode(t)
	tn.bootProvisioned(0x0034)

	tn.handle(stack.Provisioned{Address: 0x0099})

	assert.Equal(t, stack.Address(0x0034), tn.Status().Identity.Address)
}

func TestProvisioningFailedSchedulesOneRestart(t *testing.T) {
	prior := map[string][]stack.Event{
		"booting":       nil,
		"initializing":  {stack.Boot{}},
		"unprovisioned": {stack.Boot{}, stack.NodeInitialized{}},
		"provisioning":  {stack.Boot{}, stack.NodeInitialized{}, stack.ProvisioningStarted{}},
		"provisioned":   {stack.Boot{}, stack.NodeInitialized{Provisioned: true, Address: 2}},
	}
	for name, events := range prior {
		t.Run(name, func(t *testing.T) {
			tn := newTestNode(t)
			tn.handle(events...)
			tn.stack.Clear()

			tn.handle(stack.ProvisioningFailed{Result: stack.ResultTimeout})

			timers := tn.stack.TimerCalls(stack.TimerRestart)
			require.Len(t, timers, 1)
			assert.Equal(t, []any{2 * stack.TicksPerSecond, stack.TimerRestart, true}, timers[0].Args)
			assert.Equal(t, StateProvisioningFailed, tn.Status().State)
			assert.Equal(t, display.TextProvFailed, tn.display.Row(display.RowStatus))
			assert.Zero(t, tn.stack.Count(stack.CmdSystemReset), "reboot waits for the timer")

			tn.handle(stack.SoftTimerElapsed{Timer: stack.TimerRestart})
			resets := tn.stack.CallsNamed(stack.CmdSystemReset)
			require.Len(t, resets, 1)
			assert.Equal(t, stack.ResetNormal, resets[0].Args[0])
		})
	}
}

func TestProvisioningBlinkTogglesIndicators(t *testing.T) {
	led0, led1 := &gpio.SimLED{}, &gpio.SimLED{}
	tn := newTestNode(t, func(c *Config) { c.Indicators = []gpio.LED{led0, led1} })

	tn.handle(stack.Boot{}, stack.NodeInitialized{}, stack.ProvisioningStarted{})
	tn.handle(stack.SoftTimerElapsed{Timer: stack.TimerProvisioning})
	assert.True(t, led0.On())
	assert.True(t, led1.On())

	_, armed := tn.Status().TimerArmed(stack.TimerProvisioning)
	assert.True(t, armed, "periodic timer stays armed after expiry")

	tn.handle(stack.Provisioned{Address: 1})
	assert.False(t, led0.On())
	assert.False(t, led1.On())
	stops := tn.stack.TimerCalls(stack.TimerProvisioning)
	require.Len(t, stops, 2)
	assert.Equal(t, stack.TimerStop, stops[1].Args[0])
}

func TestIgnoredEventsIssueNoCommands(t *testing.T) {
	tn := newTestNode(t)
	tn.bootProvisioned(0x0034)
	before := tn.Status()

	tn.handle(
		stack.Unknown{RawID: 0x12345678},
		stack.ExternalSignal{Signals: gpio.SignalPB0Falling},
		stack.AdvertisingTimeout{Set: 0},
		stack.ConnectionParameters{Connection: 1, Interval: 6, Timeout: 500},
		stack.SoftTimerElapsed{Timer: stack.TimerRetransOnOff},
		stack.SoftTimerElapsed{Timer: stack.TimerNodeConfigured},
		stack.UserWriteRequest{Connection: 1, Characteristic: stack.CharDeviceName},
		nil,
	)

	assert.Empty(t, tn.stack.Names())
	assert.Equal(t, before, tn.Status())
}

func TestFactoryResetOnNodeReset(t *testing.T) {
	tn := newTestNode(t)
	tn.bootProvisioned(0x0034)
	tn.handle(stack.ConnectionOpened{Connection: 4})
	tn.stack.Clear()

	tn.handle(stack.NodeReset{})

	names := tn.stack.Names()
	assert.Equal(t, []string{
		stack.CmdCloseConnection,
		stack.CmdEraseAllSettings,
		stack.CmdSetSoftTimer,
	}, names)
	assert.Equal(t, stack.Handle(4), tn.stack.CallsNamed(stack.CmdCloseConnection)[0].Args[0])
	assert.Equal(t, StateFactoryReset, tn.Status().State)
}

func TestFactoryResetIsIdempotent(t *testing.T) {
	tn := newTestNode(t)
	tn.bootProvisioned(0x0034)

	tn.handle(stack.NodeReset{}, stack.NodeReset{})

	assert.Equal(t, 2, tn.stack.Count(stack.CmdEraseAllSettings))
	assert.Len(t, tn.stack.TimerCalls(stack.TimerFactoryReset), 2)
	assert.Zero(t, tn.stack.Count(stack.CmdSystemReset))

	st := tn.Status()
	assert.Len(t, st.Timers, 1)
	e, ok := st.TimerArmed(stack.TimerFactoryReset)
	require.True(t, ok)
	assert.True(t, e.OneShot)
}

func TestOTAWriteRebootsIntoDFU(t *testing.T) {
	tn := newTestNode(t)
	tn.bootProvisioned(0x0034)
	tn.handle(stack.ConnectionOpened{Connection: 2})
	tn.stack.Clear()

	tn.handle(stack.UserWriteRequest{Connection: 2, Characteristic: stack.CharOTAControl, Value: []byte{0}})
	assert.True(t, tn.Status().PendingDFU)

	resp := tn.stack.CallsNamed(stack.CmdSendUserWriteResponse)
	require.Len(t, resp, 1)
	assert.Equal(t, []any{stack.Handle(2), stack.CharOTAControl, stack.ResultSuccess}, resp[0].Args)
	closes := tn.stack.CallsNamed(stack.CmdCloseConnection)
	require.Len(t, closes, 1)
	assert.Equal(t, stack.Handle(2), closes[0].Args[0])

	tn.stack.Clear()
	tn.handle(stack.ConnectionClosed{Connection: 2, Reason: stack.ResultLocalTerminate})

	resets := tn.stack.CallsNamed(stack.CmdSystemReset)
	require.Len(t, resets, 1)
	assert.Equal(t, stack.ResetDFU, resets[0].Args[0])
	assert.Zero(t, tn.stack.Count(stack.CmdLPNInit), "no LPN bookkeeping on the DFU path")
	assert.Equal(t, stack.NoHandle, tn.Status().Conn.LastHandle)
}

func TestTraceRecordsCommandsAndState(t *testing.T) {
	tn := newTestNode(t)
	tn.stack.SetResult(stack.CmdLPNInit, stack.ResultOutOfMemory)

	tn.handle(stack.Boot{}, stack.NodeInitialized{Provisioned: true, Address: 0x0034})

	events := tn.trace.byCategory(log.CategoryEvent)
	require.Len(t, events, 2)
	assert.Equal(t, "system_boot", events[0].StackEvent.Name)
	assert.Equal(t, "switch node 0a:0b", events[1].Node)

	var failed []string
	for _, ev := range tn.trace.byCategory(log.CategoryCommand) {
		if ev.Command.Failed() {
			failed = append(failed, ev.Command.Name)
		}
	}
	assert.Equal(t, []string{stack.CmdLPNInit}, failed)

	var lifecycle []string
	for _, ev := range tn.trace.byCategory(log.CategoryState) {
		if ev.StateChange.Entity == log.StateEntityLifecycle {
			lifecycle = append(lifecycle, ev.StateChange.NewState)
		}
	}
	assert.Equal(t, []string{"BOOTING", "INITIALIZING", "PROVISIONED"}, lifecycle)
	assert.False(t, tn.Status().LPN.Active)
}

func TestStaleBlinkExpiryIgnored(t *testing.T) {
	led := &gpio.SimLED{}
	tn := newTestNode(t, func(c *Config) { c.Indicators = []gpio.LED{led} })

	tn.handle(
		stack.Boot{},
		stack.NodeInitialized{},
		stack.ProvisioningStarted{},
		stack.Provisioned{Address: 1},
		stack.SoftTimerElapsed{Timer: stack.TimerProvisioning},
	)

	assert.False(t, led.On())
	assert.Zero(t, led.Toggles())
}
