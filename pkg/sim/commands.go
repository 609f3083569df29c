package sim

import (
	"crypto/sha256"
	"io"

	"github.com/lpnswitch/lpnswitch-go/pkg/node"
	"github.com/lpnswitch/lpnswitch-go/pkg/persistence"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
	"golang.org/x/crypto/hkdf"
)

func (s *Stack) GetBDAddr() (stack.BDAddr, stack.Result) {
	return s.cfg.Addr, stack.ResultSuccess
}

func (s *Stack) WriteAttribute(char stack.Characteristic, offset uint16, value []byte) stack.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.attrs[char]
	if int(offset) > len(cur) {
		return stack.ResultInvalidParam
	}
	v := make([]byte, int(offset)+len(value))
	copy(v, cur[:offset])
	copy(v[offset:], value)
	s.attrs[char] = v
	return stack.ResultSuccess
}

func (s *Stack) SendUserWriteResponse(conn stack.Handle, char stack.Characteristic, status stack.Result) stack.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[conn]; !ok {
		return stack.ResultNotFound
	}
	s.responses = append(s.responses, WriteResponse{Connection: conn, Characteristic: char, Status: status})
	return stack.ResultSuccess
}

// NodeInit loads the persisted record and reports it in NodeInitialized.
func (s *Stack) NodeInit() stack.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mesh.nodeInit {
		return stack.ResultWrongState
	}

	rec, err := s.cfg.Store.Load()
	if err != nil {
		s.warnLog("loading node record failed, starting unprovisioned", "error", err)
		rec = nil
	}

	s.mesh.nodeInit = true
	ev := stack.NodeInitialized{}
	if rec != nil && rec.Provisioned {
		s.mesh.provisioned = true
		s.mesh.address = rec.Address
		s.mesh.ivIndex = rec.IVIndex
		ev = stack.NodeInitialized{Provisioned: true, Address: rec.Address, IVIndex: rec.IVIndex}
	}
	s.pushLocked(ev)
	return stack.ResultSuccess
}

func (s *Stack) StartUnprovBeaconing(bearers stack.Bearer) stack.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mesh.nodeInit || s.mesh.provisioned {
		return stack.ResultWrongState
	}
	if bearers == 0 {
		return stack.ResultInvalidParam
	}
	s.mesh.beaconing = bearers
	s.infoLog("unprovisioned beaconing", "uuid", s.deviceUUID.String())
	return stack.ResultSuccess
}

func (s *Stack) GenericClientInit() stack.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mesh.nodeInit {
		return stack.ResultWrongState
	}
	s.mesh.clients = true
	return stack.ResultSuccess
}

func (s *Stack) SceneClientInit(elemIndex uint16) stack.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mesh.nodeInit {
		return stack.ResultWrongState
	}
	if elemIndex != 0 {
		return stack.ResultInvalidParam
	}
	return stack.ResultSuccess
}

func (s *Stack) MeshLibInit(maxModels int) stack.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mesh.provisioned {
		return stack.ResultWrongState
	}
	if maxModels <= 0 {
		return stack.ResultInvalidParam
	}
	s.mesh.meshLib = true
	return stack.ResultSuccess
}

func (s *Stack) LPNInit() stack.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mesh.provisioned || s.mesh.lpnInit {
		return stack.ResultWrongState
	}
	s.mesh.lpnInit = true
	return stack.ResultSuccess
}

func (s *Stack) LPNConfig(key stack.LPNConfigKey, value uint32) stack.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mesh.lpnInit {
		return stack.ResultWrongState
	}

	switch key {
	case stack.LPNQueueLength:
		if value < node.MinQueueLength || value > node.MaxQueueLength {
			return stack.ResultInvalidParam
		}
		s.mesh.queueLength = value
	case stack.LPNPollTimeout:
		if value < uint32(node.MinPollTimeout.Milliseconds()) || value > uint32(node.MaxPollTimeout.Milliseconds()) {
			return stack.ResultInvalidParam
		}
		s.mesh.pollTimeout = value
	default:
		return stack.ResultInvalidParam
	}
	return stack.ResultSuccess
}

// LPNEstablishFriendship answers immediately with the outcome: established
// when a friend is available, failed otherwise.
func (s *Stack) LPNEstablishFriendship(timeout uint32) stack.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mesh.lpnInit {
		return stack.ResultWrongState
	}
	if s.mesh.friend != 0 {
		return stack.ResultWrongState
	}

	if !s.cfg.FriendAvailable {
		s.pushLocked(stack.FriendshipFailed{Reason: stack.ResultTimeout})
		return stack.ResultSuccess
	}
	s.mesh.friend = s.cfg.FriendAddress
	s.pushLocked(stack.FriendshipEstablished{Friend: s.mesh.friend})
	return stack.ResultSuccess
}

// LPNTerminateFriendship ends the friendship locally. No event is raised
// for a termination the node asked for.
func (s *Stack) LPNTerminateFriendship() stack.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mesh.lpnInit {
		return stack.ResultWrongState
	}
	s.mesh.friend = 0
	return stack.ResultSuccess
}

func (s *Stack) LPNDeinit() stack.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mesh.lpnInit {
		return stack.ResultWrongState
	}
	s.mesh.lpnInit = false
	s.mesh.friend = 0
	s.mesh.queueLength = 0
	s.mesh.pollTimeout = 0
	return stack.ResultSuccess
}

// CloseConnection closes conn and raises ConnectionClosed.
func (s *Stack) CloseConnection(conn stack.Handle) stack.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[conn]; !ok {
		return stack.ResultNotFound
	}
	delete(s.conns, conn)
	s.pushLocked(stack.ConnectionClosed{Connection: conn, Reason: stack.ResultLocalTerminate})
	return stack.ResultSuccess
}

func (s *Stack) SetSoftTimer(ticks stack.Ticks, id stack.TimerID, singleShot bool) stack.Result {
	if err := s.timers.Set(ticks, id, singleShot); err != nil {
		return stack.ResultInvalidState
	}
	return stack.ResultSuccess
}

// EraseAllSettings clears the persisted node record.
func (s *Stack) EraseAllSettings() stack.Result {
	if err := s.cfg.Store.Clear(); err != nil {
		s.warnLog("erasing settings failed", "error", err)
		return stack.ResultInvalidState
	}
	s.infoLog("settings erased")
	return stack.ResultSuccess
}

// SystemReset reboots the simulated device: pending events, timers,
// connections and all volatile mesh state are dropped and a Boot is queued.
// The simulator has no bootloader, so a DFU reset reboots into the
// application as well.
func (s *Stack) SystemReset(mode stack.ResetMode) {
	s.infoLog("system reset", "mode", mode.String())
	s.timers.Reset()

	s.mu.Lock()
	s.resets = append(s.resets, mode)
	s.mesh = meshState{}
	clear(s.conns)
drain:
	for {
		select {
		case <-s.events:
		default:
			break drain
		}
	}
	s.signals.Drain()
	s.mu.Unlock()

	if s.cfg.OnReset != nil {
		s.cfg.OnReset(mode)
	}
	s.push(s.cfg.Firmware)
}

// provision saves a provisioned record with a device key derived from the
// device UUID and the assigned address.
func (s *Stack) provision(addr stack.Address, ivIndex uint32) error {
	key, err := deriveDeviceKey(s.deviceUUID[:], addr)
	if err != nil {
		return err
	}
	return s.cfg.Store.Save(&persistence.NodeRecord{
		DeviceUUID:  s.deviceUUID.String(),
		Provisioned: true,
		Address:     addr,
		IVIndex:     ivIndex,
		DeviceKey:   key,
	})
}

func deriveDeviceKey(secret []byte, addr stack.Address) ([]byte, error) {
	salt := []byte{byte(addr >> 8), byte(addr)}
	r := hkdf.New(sha256.New, secret, salt, []byte("lpnswitch device key"))
	key := make([]byte, 16)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
