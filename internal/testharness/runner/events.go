package runner

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// eventTypeUnknown builds a stack.Unknown from the id parameter.
const eventTypeUnknown = "unknown"

// paramReader reads typed step parameters and keeps the first error.
type paramReader struct {
	params map[string]any
	err    error
}

func (p *paramReader) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("param %s: %w", key, err)
	}
}

// unsigned reads an unsigned value of at most bits bits. Strings may use a
// 0x prefix. Missing keys read as zero.
func (p *paramReader) unsigned(key string, bits int) uint64 {
	v, ok := p.params[key]
	if !ok || p.err != nil {
		return 0
	}
	n, err := toUint(v, bits)
	if err != nil {
		p.fail(key, err)
	}
	return n
}

func (p *paramReader) u8(key string) uint8   { return uint8(p.unsigned(key, 8)) }
func (p *paramReader) u16(key string) uint16 { return uint16(p.unsigned(key, 16)) }
func (p *paramReader) u32(key string) uint32 { return uint32(p.unsigned(key, 32)) }

func (p *paramReader) flag(key string) bool {
	v, ok := p.params[key]
	if !ok || p.err != nil {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		p.fail(key, fmt.Errorf("expected bool, got %T", v))
	}
	return b
}

func (p *paramReader) str(key string) string {
	v, ok := p.params[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func (p *paramReader) result(key string) stack.Result {
	return stack.Result(p.u16(key))
}

func (p *paramReader) timer(key string) stack.TimerID {
	v, ok := p.params[key]
	if !ok {
		p.fail(key, errors.New("required"))
		return 0
	}
	id, ok := stack.ParseTimerID(fmt.Sprint(v))
	if !ok {
		p.fail(key, fmt.Errorf("unknown timer %v", v))
	}
	return id
}

func (p *paramReader) bdaddr(key string) stack.BDAddr {
	s := p.str(key)
	if s == "" {
		return stack.BDAddr{}
	}
	addr, err := stack.ParseBDAddr(s)
	if err != nil {
		p.fail(key, err)
	}
	return addr
}

func toUint(v any, bits int) (uint64, error) {
	var n uint64
	switch x := v.(type) {
	case int:
		if x < 0 {
			return 0, fmt.Errorf("negative value %d", x)
		}
		n = uint64(x)
	case int64:
		if x < 0 {
			return 0, fmt.Errorf("negative value %d", x)
		}
		n = uint64(x)
	case uint64:
		n = x
	case float64:
		if x < 0 || x != float64(uint64(x)) {
			return 0, fmt.Errorf("not an unsigned integer: %v", x)
		}
		n = uint64(x)
	case string:
		return strconv.ParseUint(x, 0, bits)
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
	if bits < 64 && n >= 1<<bits {
		return 0, fmt.Errorf("%d overflows %d bits", n, bits)
	}
	return n, nil
}

func parseResult(v any) (stack.Result, error) {
	n, err := toUint(v, 16)
	return stack.Result(n), err
}

// buildEvent turns the params of an event step into a stack event. The
// type parameter uses the stack's event names ("system_boot").
func buildEvent(params map[string]any) (stack.Event, error) {
	p := &paramReader{params: params}

	var ev stack.Event
	switch typ := p.str(ParamType); typ {
	case stack.EventBoot.String():
		ev = stack.Boot{
			Major: p.u16(ParamMajor),
			Minor: p.u16(ParamMinor),
			Patch: p.u16(ParamPatch),
			Build: p.u16(ParamBuild),
		}
	case stack.EventSoftTimer.String():
		ev = stack.SoftTimerElapsed{Timer: p.timer(ParamTimer)}
	case stack.EventNodeInitialized.String():
		ev = stack.NodeInitialized{
			Provisioned: p.flag(ParamProvisioned),
			Address:     stack.Address(p.u16(ParamAddress)),
			IVIndex:     p.u32(ParamIVIndex),
		}
	case stack.EventProvisioningStarted.String():
		ev = stack.ProvisioningStarted{Result: p.result(ParamResult)}
	case stack.EventProvisioned.String():
		ev = stack.Provisioned{
			Address: stack.Address(p.u16(ParamAddress)),
			IVIndex: p.u32(ParamIVIndex),
		}
	case stack.EventProvisioningFailed.String():
		ev = stack.ProvisioningFailed{Result: p.result(ParamResult)}
	case stack.EventConnectionOpened.String():
		ev = stack.ConnectionOpened{
			Peer:       p.bdaddr(ParamPeer),
			Connection: stack.Handle(p.u8(ParamConnection)),
			Bonding:    p.u8(ParamBonding),
		}
	case stack.EventConnectionClosed.String():
		ev = stack.ConnectionClosed{
			Connection: stack.Handle(p.u8(ParamConnection)),
			Reason:     p.result(ParamReason),
		}
	case stack.EventConnectionParameters.String():
		ev = stack.ConnectionParameters{
			Connection: stack.Handle(p.u8(ParamConnection)),
			Interval:   p.u16(ParamInterval),
			Latency:    p.u16(ParamLatency),
			Timeout:    p.u16(ParamTimeout),
		}
	case stack.EventAdvertisingTimeout.String():
		ev = stack.AdvertisingTimeout{Set: p.u8(ParamSet)}
	case stack.EventUserWriteRequest.String():
		ev = stack.UserWriteRequest{
			Connection:     stack.Handle(p.u8(ParamConnection)),
			Characteristic: stack.Characteristic(p.u16(ParamCharacteristic)),
			Offset:         p.u16(ParamOffset),
			Value:          []byte(p.str(ParamValue)),
		}
	case stack.EventNodeReset.String():
		ev = stack.NodeReset{}
	case stack.EventFriendshipEstablished.String():
		ev = stack.FriendshipEstablished{Friend: stack.Address(p.u16(ParamFriend))}
	case stack.EventFriendshipFailed.String():
		ev = stack.FriendshipFailed{Reason: p.result(ParamReason)}
	case stack.EventFriendshipTerminated.String():
		ev = stack.FriendshipTerminated{Reason: p.result(ParamReason)}
	case stack.EventExternalSignal.String():
		ev = stack.ExternalSignal{Signals: p.u32(ParamSignals)}
	case eventTypeUnknown:
		ev = stack.Unknown{RawID: stack.EventID(p.u32(ParamID))}
	case "":
		return nil, fmt.Errorf("missing %s parameter", ParamType)
	default:
		return nil, fmt.Errorf("unknown event type %q", typ)
	}

	if p.err != nil {
		return nil, p.err
	}
	return ev, nil
}
