// Package sim implements stack.Stack in software so the switch node can run
// on a host.
//
// The simulated stack keeps just enough mesh state to answer the node's
// commands the way the firmware stack does: it refuses commands issued in
// the wrong state, persists the provisioning record in a persistence.Store,
// runs soft timers on a softtimer.Multiplexer and turns button edges into
// ExternalSignal events through a gpio.SignalQueue.
//
// The peer side of the network (provisioner, GATT clients, friend node) is
// driven through the injection methods: Provision, Connect, Disconnect,
// WriteCharacteristic, RequestNodeReset, LoseFriend and friends.
//
// A SystemReset drops every pending event, clears the volatile state and
// queues a fresh Boot, so the node restarts exactly as it would on hardware.
package sim
