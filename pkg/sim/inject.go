package sim

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lpnswitch/lpnswitch-go/pkg/softtimer"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// MaxConnections is the number of simultaneous GATT connections accepted.
const MaxConnections = 4

// Injection errors.
var (
	ErrNotBeaconing       = errors.New("node is not beaconing")
	ErrNotProvisioned     = errors.New("node is not provisioned")
	ErrNoConnection       = errors.New("no such connection")
	ErrTooManyConnections = errors.New("too many connections")
	ErrNoFriend           = errors.New("no friendship")
	ErrUnknownButton      = errors.New("unknown button")
	ErrQueueFull          = errors.New("event queue full")
)

// Inject queues an arbitrary event.
func (s *Stack) Inject(ev stack.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.injectLocked(ev)
}

func (s *Stack) injectLocked(ev stack.Event) error {
	if s.closed {
		return stack.ErrStopped
	}
	if !s.pushLocked(ev) {
		return ErrQueueFull
	}
	return nil
}

// Press holds a button down. Edges on PB0 raise an external signal.
func (s *Stack) Press(button string) error {
	return s.setButton(button, false)
}

// Release lets a button go.
func (s *Stack) Release(button string) error {
	return s.setButton(button, true)
}

func (s *Stack) setButton(button string, high bool) error {
	switch button {
	case "PB0", "pb0", "0":
		s.pb0.Set(high)
		s.edge.OnEdge()
	case "PB1", "pb1", "1":
		s.pb1.Set(high)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownButton, button)
	}
	return nil
}

// Provision runs a complete provisioning: the provisioner assigns addr and
// the record is persisted before Provisioned is raised.
func (s *Stack) Provision(addr stack.Address, ivIndex uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mesh.beaconing == 0 {
		return ErrNotBeaconing
	}
	if err := s.injectLocked(stack.ProvisioningStarted{}); err != nil {
		return err
	}
	if err := s.provision(addr, ivIndex); err != nil {
		return fmt.Errorf("save node record: %w", err)
	}

	s.mesh.provisioned = true
	s.mesh.address = addr
	s.mesh.ivIndex = ivIndex
	s.mesh.beaconing = 0
	return s.injectLocked(stack.Provisioned{Address: addr, IVIndex: ivIndex})
}

// FailProvisioning starts a provisioning that the provisioner then aborts.
func (s *Stack) FailProvisioning(reason stack.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mesh.beaconing == 0 {
		return ErrNotBeaconing
	}
	if err := s.injectLocked(stack.ProvisioningStarted{}); err != nil {
		return err
	}
	return s.injectLocked(stack.ProvisioningFailed{Result: reason})
}

// RequestNodeReset makes the provisioner remove the node from the network.
func (s *Stack) RequestNodeReset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mesh.provisioned {
		return ErrNotProvisioned
	}
	return s.injectLocked(stack.NodeReset{})
}

// Connect opens a GATT connection from peer and returns its handle.
func (s *Stack) Connect(peer stack.BDAddr) (stack.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.conns) >= MaxConnections {
		return stack.NoHandle, ErrTooManyConnections
	}
	h := stack.Handle(0)
	for ; ; h++ {
		if _, used := s.conns[h]; !used {
			break
		}
	}
	if err := s.injectLocked(stack.ConnectionOpened{Peer: peer, Connection: h, Bonding: 0xFF}); err != nil {
		return stack.NoHandle, err
	}
	s.conns[h] = peer
	return h, nil
}

// Disconnect closes conn from the remote side.
func (s *Stack) Disconnect(conn stack.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[conn]; !ok {
		return ErrNoConnection
	}
	delete(s.conns, conn)
	return s.injectLocked(stack.ConnectionClosed{Connection: conn, Reason: stack.ResultRemoteUser})
}

// UpdateConnectionParameters reports new parameters for conn.
func (s *Stack) UpdateConnectionParameters(conn stack.Handle, interval, latency, timeout uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[conn]; !ok {
		return ErrNoConnection
	}
	return s.injectLocked(stack.ConnectionParameters{
		Connection: conn,
		Interval:   interval,
		Latency:    latency,
		Timeout:    timeout,
	})
}

// WriteCharacteristic performs a client write of a user characteristic.
func (s *Stack) WriteCharacteristic(conn stack.Handle, char stack.Characteristic, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[conn]; !ok {
		return ErrNoConnection
	}
	return s.injectLocked(stack.UserWriteRequest{
		Connection:     conn,
		Characteristic: char,
		Value:          append([]byte(nil), value...),
	})
}

// RequestDFU writes the OTA control point on conn.
func (s *Stack) RequestDFU(conn stack.Handle) error {
	return s.WriteCharacteristic(conn, stack.CharOTAControl, []byte{0x00})
}

// SetFriendAvailable controls whether a friend answers friend requests.
func (s *Stack) SetFriendAvailable(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.FriendAvailable = ok
}

// LoseFriend ends the current friendship from the friend's side.
func (s *Stack) LoseFriend(reason stack.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mesh.friend == 0 {
		return ErrNoFriend
	}
	s.mesh.friend = 0
	return s.injectLocked(stack.FriendshipTerminated{Reason: reason})
}

// Status is a snapshot of the simulated device.
type Status struct {
	NodeInitialized bool
	Provisioned     bool
	Address         stack.Address
	IVIndex         uint32
	Beaconing       stack.Bearer

	LPN         bool
	QueueLength uint32
	PollTimeout uint32
	Friend      stack.Address

	Connections []stack.Handle
	Responses   []WriteResponse
	Resets      []stack.ResetMode

	DeviceName string
	LEDs       [2]bool
	Timers     []softtimer.Entry
}

// Status returns a snapshot of the simulated device.
func (s *Stack) Status() Status {
	timers := s.timers.Pending()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		NodeInitialized: s.mesh.nodeInit,
		Provisioned:     s.mesh.provisioned,
		Address:         s.mesh.address,
		IVIndex:         s.mesh.ivIndex,
		Beaconing:       s.mesh.beaconing,
		LPN:             s.mesh.lpnInit,
		QueueLength:     s.mesh.queueLength,
		PollTimeout:     s.mesh.pollTimeout,
		Friend:          s.mesh.friend,
		Responses:       slices.Clone(s.responses),
		Resets:          slices.Clone(s.resets),
		DeviceName:      string(s.attrs[stack.CharDeviceName]),
		LEDs:            [2]bool{s.leds[0].On(), s.leds[1].On()},
		Timers:          timers,
	}
	for h := range s.conns {
		st.Connections = append(st.Connections, h)
	}
	slices.Sort(st.Connections)
	return st
}
