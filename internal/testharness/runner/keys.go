package runner

// Action names usable in scenario steps.
const (
	ActionEvent         = "event"
	ActionElapse        = "elapse"
	ActionPress         = "press"
	ActionRelease       = "release"
	ActionFailCommand   = "fail_command"
	ActionClearCommands = "clear_commands"
	ActionSnapshot      = "snapshot"
)

// Step parameter keys.
const (
	ParamType    = "type"
	ParamRepeat  = "repeat"
	ParamTimer   = "timer"
	ParamButton  = "button"
	ParamCommand = "command"
	ParamResult  = "result"

	// Event fields.
	ParamMajor          = "major"
	ParamMinor          = "minor"
	ParamPatch          = "patch"
	ParamBuild          = "build"
	ParamProvisioned    = "provisioned"
	ParamAddress        = "address"
	ParamIVIndex        = "iv_index"
	ParamConnection     = "connection"
	ParamPeer           = "peer"
	ParamBonding        = "bonding"
	ParamReason         = "reason"
	ParamInterval       = "interval"
	ParamLatency        = "latency"
	ParamTimeout        = "timeout"
	ParamSet            = "set"
	ParamCharacteristic = "characteristic"
	ParamOffset         = "offset"
	ParamValue          = "value"
	ParamFriend         = "friend"
	ParamSignals        = "signals"
	ParamID             = "id"
)

// Output keys produced by every node-facing action. The command, timer and
// display outputs use the engine.Output* keys.
const (
	OutputState            = "state"
	OutputElementIndex     = "element_index"
	OutputAddress          = "address"
	OutputIdentityAssigned = "identity_assigned"
	OutputConnections      = "connections"
	OutputLastHandle       = "last_handle"
	OutputLPNActive        = "lpn_active"
	OutputPendingDFU       = "pending_dfu"
	OutputName             = "name"
	OutputResetMode        = "reset_mode"
	OutputLEDToggles       = "led_toggles"
	OutputDispatched       = "dispatched"
	OutputFiltered         = "filtered"
)

// Timer output fields.
const (
	TimerFieldTicks      = "ticks"
	TimerFieldSingleShot = "single_shot"
)

// sessionKey stores the per-scenario session in ExecutionState.Custom.
const sessionKey = "session"
