package stack

import "fmt"

// EventID is the numeric identifier of a stack event.
type EventID uint32

// Event identifiers. Values mirror the class/method layout of the
// collaborator's API (class in bits 16..23, method in bits 24..31).
const (
	EventUnknown               EventID = 0
	EventBoot                  EventID = 0x000100a0
	EventExternalSignal        EventID = 0x030100a0
	EventSoftTimer             EventID = 0x000c00a0
	EventConnectionOpened      EventID = 0x000800a0
	EventConnectionClosed      EventID = 0x010800a0
	EventConnectionParameters  EventID = 0x020800a0
	EventAdvertisingTimeout    EventID = 0x010300a0
	EventUserWriteRequest      EventID = 0x020a00a0
	EventNodeInitialized       EventID = 0x001400a0
	EventProvisioned           EventID = 0x011400a0
	EventProvisioningStarted   EventID = 0x051400a0
	EventProvisioningFailed    EventID = 0x061400a0
	EventNodeReset             EventID = 0x0b1400a0
	EventFriendshipEstablished EventID = 0x002300a0
	EventFriendshipFailed      EventID = 0x012300a0
	EventFriendshipTerminated  EventID = 0x022300a0
)

// String returns the event name.
func (id EventID) String() string {
	switch id {
	case EventBoot:
		return "system_boot"
	case EventExternalSignal:
		return "system_external_signal"
	case EventSoftTimer:
		return "hardware_soft_timer"
	case EventConnectionOpened:
		return "le_connection_opened"
	case EventConnectionClosed:
		return "le_connection_closed"
	case EventConnectionParameters:
		return "le_connection_parameters"
	case EventAdvertisingTimeout:
		return "le_gap_adv_timeout"
	case EventUserWriteRequest:
		return "gatt_server_user_write_request"
	case EventNodeInitialized:
		return "mesh_node_initialized"
	case EventProvisioned:
		return "mesh_node_provisioned"
	case EventProvisioningStarted:
		return "mesh_node_provisioning_started"
	case EventProvisioningFailed:
		return "mesh_node_provisioning_failed"
	case EventNodeReset:
		return "mesh_node_reset"
	case EventFriendshipEstablished:
		return "mesh_lpn_friendship_established"
	case EventFriendshipFailed:
		return "mesh_lpn_friendship_failed"
	case EventFriendshipTerminated:
		return "mesh_lpn_friendship_terminated"
	default:
		return fmt.Sprintf("evt_%08x", uint32(id))
	}
}

// Event is a stack event. The set of variants is closed.
type Event interface {
	ID() EventID
	isEvent()
}

// Boot is emitted once the system has started after any reset.
type Boot struct {
	Major, Minor, Patch uint16
	Build               uint16
}

// SoftTimerElapsed is emitted when a soft timer expires.
type SoftTimerElapsed struct {
	Timer TimerID
}

// NodeInitialized is emitted after NodeInit completes.
type NodeInitialized struct {
	Provisioned bool
	Address     Address
	IVIndex     uint32
}

// ProvisioningStarted is emitted when a provisioner starts provisioning.
type ProvisioningStarted struct {
	Result Result
}

// Provisioned is emitted when provisioning completed successfully.
type Provisioned struct {
	IVIndex uint32
	Address Address
}

// ProvisioningFailed is emitted when provisioning was aborted.
type ProvisioningFailed struct {
	Result Result
}

// ConnectionOpened is emitted when an LE connection was established.
type ConnectionOpened struct {
	Peer       BDAddr
	Connection Handle
	Bonding    uint8
}

// ConnectionClosed is emitted when an LE connection was closed.
type ConnectionClosed struct {
	Connection Handle
	Reason     Result
}

// ConnectionParameters is emitted when connection parameters changed.
type ConnectionParameters struct {
	Connection Handle
	Interval   uint16
	Latency    uint16
	Timeout    uint16
}

// AdvertisingTimeout is emitted when an advertising set stopped.
type AdvertisingTimeout struct {
	Set uint8
}

// UserWriteRequest is emitted when a client writes a user-type characteristic.
type UserWriteRequest struct {
	Connection     Handle
	Characteristic Characteristic
	Offset         uint16
	Value          []byte
}

// NodeReset is emitted when the provisioner requested a node reset.
type NodeReset struct{}

// FriendshipEstablished is emitted when the LPN found a friend.
type FriendshipEstablished struct {
	Friend Address
}

// FriendshipFailed is emitted when friend establishment failed.
type FriendshipFailed struct {
	Reason Result
}

// FriendshipTerminated is emitted when an existing friendship ended.
type FriendshipTerminated struct {
	Reason Result
}

// ExternalSignal carries signal bits raised from interrupt context.
type ExternalSignal struct {
	Signals uint32
}

// Unknown is any event the core has no variant for.
type Unknown struct {
	RawID EventID
}

func (Boot) ID() EventID                  { return EventBoot }
func (SoftTimerElapsed) ID() EventID      { return EventSoftTimer }
func (NodeInitialized) ID() EventID       { return EventNodeInitialized }
func (ProvisioningStarted) ID() EventID   { return EventProvisioningStarted }
func (Provisioned) ID() EventID           { return EventProvisioned }
func (ProvisioningFailed) ID() EventID    { return EventProvisioningFailed }
func (ConnectionOpened) ID() EventID      { return EventConnectionOpened }
func (ConnectionClosed) ID() EventID      { return EventConnectionClosed }
func (ConnectionParameters) ID() EventID  { return EventConnectionParameters }
func (AdvertisingTimeout) ID() EventID    { return EventAdvertisingTimeout }
func (UserWriteRequest) ID() EventID      { return EventUserWriteRequest }
func (NodeReset) ID() EventID             { return EventNodeReset }
func (FriendshipEstablished) ID() EventID { return EventFriendshipEstablished }
func (FriendshipFailed) ID() EventID      { return EventFriendshipFailed }
func (FriendshipTerminated) ID() EventID  { return EventFriendshipTerminated }
func (ExternalSignal) ID() EventID        { return EventExternalSignal }
func (u Unknown) ID() EventID             { return u.RawID }

func (Boot) isEvent()                  {}
func (SoftTimerElapsed) isEvent()      {}
func (NodeInitialized) isEvent()       {}
func (ProvisioningStarted) isEvent()   {}
func (Provisioned) isEvent()           {}
func (ProvisioningFailed) isEvent()    {}
func (ConnectionOpened) isEvent()      {}
func (ConnectionClosed) isEvent()      {}
func (ConnectionParameters) isEvent()  {}
func (AdvertisingTimeout) isEvent()    {}
func (UserWriteRequest) isEvent()      {}
func (NodeReset) isEvent()             {}
func (FriendshipEstablished) isEvent() {}
func (FriendshipFailed) isEvent()      {}
func (FriendshipTerminated) isEvent()  {}
func (ExternalSignal) isEvent()        {}
func (Unknown) isEvent()               {}
