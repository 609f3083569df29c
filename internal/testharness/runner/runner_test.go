package runner

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/lpnswitch/lpnswitch-go/internal/testharness/engine"
	"github.com/lpnswitch/lpnswitch-go/internal/testharness/loader"
	"github.com/lpnswitch/lpnswitch-go/pkg/log"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

const casesDir = "../../../testdata/cases"

func TestRunScenarios(t *testing.T) {
	var out bytes.Buffer
	r := New(&Config{TestDir: casesDir, Output: &out})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Results) == 0 {
		t.Fatal("no scenarios ran")
	}
	for _, tr := range result.Results {
		if !tr.Passed {
			t.Errorf("%s (%s) failed: %v", tr.TestCase.ID, tr.TestCase.Name, tr.Error)
		}
	}
	if t.Failed() {
		t.Log(out.String())
	}
}

func TestRunFiltersByTag(t *testing.T) {
	var out bytes.Buffer
	r := New(&Config{TestDir: casesDir, Tags: "dfu", Output: &out})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, tr := range result.Results {
		if !strings.HasPrefix(tr.TestCase.ID, "TC-DFU-") {
			t.Errorf("unexpected scenario %s for tag dfu", tr.TestCase.ID)
		}
	}
	if len(result.Results) != 2 {
		t.Errorf("ran %d scenarios, want 2", len(result.Results))
	}
}

func TestRunNoMatch(t *testing.T) {
	r := New(&Config{TestDir: casesDir, Pattern: "^TC-NOPE", Output: &bytes.Buffer{}})
	if _, err := r.Run(context.Background()); err == nil {
		t.Error("expected an error when no scenario matches")
	}
}

func TestScenarioTraceTaggedWithID(t *testing.T) {
	trace := &captureLogger{}
	r := New(&Config{Trace: trace, Output: &bytes.Buffer{}})

	tc := &loader.TestCase{
		ID:    "TC-TRACE",
		Name:  "trace",
		Steps: []loader.Step{{Action: ActionEvent, Params: map[string]any{ParamType: "system_boot"}}},
	}
	result := r.RunCases(context.Background(), []*loader.TestCase{tc})
	if result.PassCount != 1 {
		t.Fatalf("scenario failed: %v", result.Results[0].Error)
	}
	if len(trace.events) == 0 {
		t.Fatal("no trace events recorded")
	}
	for _, ev := range trace.events {
		if ev.SessionID != "TC-TRACE" {
			t.Errorf("SessionID = %q, want TC-TRACE", ev.SessionID)
		}
	}
}

func TestSetupRejectsBadNode(t *testing.T) {
	r := New(&Config{Output: &bytes.Buffer{}})

	tests := []struct {
		name  string
		setup loader.NodeSetup
	}{
		{"bad address", loader.NodeSetup{BDAddr: "nope"}},
		{"unknown button", loader.NodeSetup{ButtonsHeld: []string{"PB7"}}},
		{"unknown command", loader.NodeSetup{Fail: map[string]string{"self_destruct": "0x0181"}}},
		{"bad result", loader.NodeSetup{Fail: map[string]string{"node_init": "oops"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.newSession(&loader.TestCase{ID: "X", Node: tt.setup}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestBuildEvent(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   stack.Event
	}{
		{
			"boot",
			map[string]any{ParamType: "system_boot", ParamMajor: 2, ParamBuild: 100},
			stack.Boot{Major: 2, Build: 100},
		},
		{
			"timer by name",
			map[string]any{ParamType: "hardware_soft_timer", ParamTimer: "friend_find"},
			stack.SoftTimerElapsed{Timer: stack.TimerFriendFind},
		},
		{
			"provisioned with hex address",
			map[string]any{ParamType: "mesh_node_provisioned", ParamAddress: "0x0012", ParamIVIndex: 7},
			stack.Provisioned{Address: 0x0012, IVIndex: 7},
		},
		{
			"connection opened",
			map[string]any{ParamType: "le_connection_opened", ParamConnection: 3, ParamPeer: "aa:bb:cc:dd:ee:ff"},
			stack.ConnectionOpened{Connection: 3, Peer: stack.BDAddr{0xff, 0xee, 0xdd, 0xcc, 0xbb, 0xaa}},
		},
		{
			"closed with reason",
			map[string]any{ParamType: "le_connection_closed", ParamConnection: 3, ParamReason: "0x0213"},
			stack.ConnectionClosed{Connection: 3, Reason: stack.ResultRemoteUser},
		},
		{
			"node reset",
			map[string]any{ParamType: "mesh_node_reset"},
			stack.NodeReset{},
		},
		{
			"unknown",
			map[string]any{ParamType: "unknown", ParamID: 99},
			stack.Unknown{RawID: 99},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildEvent(tt.params)
			if err != nil {
				t.Fatalf("buildEvent: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestBuildEventUserWrite(t *testing.T) {
	ev, err := buildEvent(map[string]any{
		ParamType:           "gatt_server_user_write_request",
		ParamConnection:     1,
		ParamCharacteristic: 26,
		ParamValue:          "go",
	})
	if err != nil {
		t.Fatalf("buildEvent: %v", err)
	}
	w, ok := ev.(stack.UserWriteRequest)
	if !ok {
		t.Fatalf("got %T", ev)
	}
	if w.Characteristic != stack.CharOTAControl || string(w.Value) != "go" {
		t.Errorf("got %+v", w)
	}
}

func TestBuildEventErrors(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"missing type", map[string]any{}},
		{"unknown type", map[string]any{ParamType: "le_scan_report"}},
		{"overflow", map[string]any{ParamType: "le_connection_opened", ParamConnection: 256}},
		{"negative", map[string]any{ParamType: "mesh_node_provisioned", ParamAddress: -1}},
		{"not a bool", map[string]any{ParamType: "mesh_node_initialized", ParamProvisioned: "yes"}},
		{"missing timer", map[string]any{ParamType: "hardware_soft_timer"}},
		{"unknown timer", map[string]any{ParamType: "hardware_soft_timer", ParamTimer: "SNOOZE"}},
		{"bad peer", map[string]any{ParamType: "le_connection_opened", ParamPeer: "aa:bb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildEvent(tt.params); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestHandlersNeedSession(t *testing.T) {
	r := New(&Config{Output: &bytes.Buffer{}})
	state := engine.NewExecutionState(context.Background())

	step := &loader.Step{Action: ActionSnapshot}
	if _, err := r.handleSnapshot(context.Background(), step, state); err != ErrNoSession {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
}

func TestFailCommandDefaultsToInvalidState(t *testing.T) {
	r := New(&Config{Output: &bytes.Buffer{}})
	state := engine.NewExecutionState(context.Background())
	if err := r.setupSession(context.Background(), &loader.TestCase{ID: "X"}, state); err != nil {
		t.Fatalf("setup: %v", err)
	}
	s, _ := sessionFrom(state)

	step := &loader.Step{Params: map[string]any{ParamCommand: stack.CmdNodeInit}}
	if _, err := r.handleFailCommand(context.Background(), step, state); err != nil {
		t.Fatalf("fail_command: %v", err)
	}
	if got := s.rec.NodeInit(); got != stack.ResultInvalidState {
		t.Errorf("NodeInit() = %v, want %v", got, stack.ResultInvalidState)
	}

	step = &loader.Step{Params: map[string]any{ParamCommand: "warp_drive"}}
	if _, err := r.handleFailCommand(context.Background(), step, state); err == nil {
		t.Error("expected an error for an unknown command")
	}
}

type captureLogger struct {
	events []log.Event
}

func (c *captureLogger) Log(ev log.Event) {
	c.events = append(c.events, ev)
}
