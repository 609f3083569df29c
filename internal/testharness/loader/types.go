// Package loader provides YAML scenario loading for the switch node test harness.
package loader

import "strconv"

// TestCase represents a single scenario loaded from YAML.
type TestCase struct {
	// ID is the unique scenario identifier (e.g., "TC-LPN-001").
	ID string `yaml:"id"`

	// Name is a human-readable name for the scenario.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Node configures the node under test before the first step.
	Node NodeSetup `yaml:"node"`

	// Steps are the actions to execute in order.
	Steps []Step `yaml:"steps"`

	// Timeout is the maximum duration for the scenario (e.g., "5s").
	Timeout string `yaml:"timeout,omitempty"`

	// Tags for categorizing scenarios.
	Tags []string `yaml:"tags,omitempty"`

	// Skip marks the scenario as not runnable.
	Skip bool `yaml:"skip,omitempty"`

	// SkipReason explains why the scenario is skipped.
	SkipReason string `yaml:"skip_reason,omitempty"`
}

// NodeSetup describes the node and stack configuration of a scenario.
type NodeSetup struct {
	// BDAddr overrides the Bluetooth address reported by the stack.
	BDAddr string `yaml:"bd_addr,omitempty"`

	// EnterLPNOnProvisioned enables LPN right after provisioning.
	EnterLPNOnProvisioned bool `yaml:"enter_lpn_on_provisioned,omitempty"`

	// ButtonsHeld lists the reset buttons held at power-on ("PB0", "PB1").
	ButtonsHeld []string `yaml:"buttons_held,omitempty"`

	// Fail maps command names to the result code they return (e.g., "0x0181").
	Fail map[string]string `yaml:"fail,omitempty"`

	// FilterRetransmissions lets the stack consume retransmission timers.
	FilterRetransmissions bool `yaml:"filter_retransmissions,omitempty"`
}

// Step represents a single action in a scenario.
type Step struct {
	// Action is the action to perform (e.g., "event", "clear_commands").
	Action string `yaml:"action"`

	// Params are parameters for the action.
	Params map[string]any `yaml:"params,omitempty"`

	// Expect defines expected outcomes after the action.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Description explains what this step does.
	Description string `yaml:"description,omitempty"`
}

// LoadError provides details about a scenario loading error.
type LoadError struct {
	// File is the path to the file that failed to load.
	File string

	// Line is the line number where the error occurred (0 if unknown).
	Line int

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Line > 0 {
		return e.File + ":" + strconv.Itoa(e.Line) + ": " + msg
	}
	if e.File == "" {
		return msg
	}
	return e.File + ": " + msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
