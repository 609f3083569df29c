package log

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// A trace file is a sequence of segments. Every FileLogger open starts a
// segment with a tagged Header, followed by untagged Event maps.
const (
	// TagSegmentHeader is the CBOR tag number carried by segment headers
	// ("ntrc" in ASCII).
	TagSegmentHeader uint64 = 0x6e747263

	// FormatVersion is the trace format written by this build.
	FormatVersion uint8 = 1
)

// ErrUnsupportedFormat is returned for segments written by a newer build.
var ErrUnsupportedFormat = errors.New("unsupported trace format version")

// Header opens a trace segment.
type Header struct {
	// Version is the trace format version of the segment.
	Version uint8 `cbor:"1,keyasint"`

	// Opened is when the writer opened the file.
	Opened time.Time `cbor:"2,keyasint"`

	// Writer names the program that wrote the segment.
	Writer string `cbor:"3,keyasint,omitempty"`
}

var (
	traceEncMode cbor.EncMode
	traceDecMode cbor.DecMode
)

func init() {
	tags := cbor.NewTagSet()
	err := tags.Add(
		cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired},
		reflect.TypeOf(Header{}),
		TagSegmentHeader,
	)
	if err != nil {
		panic(fmt.Sprintf("failed to register trace header tag: %v", err))
	}

	// Canonical so identical events produce identical bytes.
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	traceEncMode, err = encOpts.EncModeWithTags(tags)
	if err != nil {
		panic(fmt.Sprintf("failed to create trace CBOR encoder mode: %v", err))
	}

	// Older trace files may carry keys this build does not know; they are
	// skipped rather than rejected.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	traceDecMode, err = decOpts.DecModeWithTags(tags)
	if err != nil {
		panic(fmt.Sprintf("failed to create trace CBOR decoder mode: %v", err))
	}
}

// EncodeEvent encodes an Event to CBOR.
func EncodeEvent(event Event) ([]byte, error) {
	return traceEncMode.Marshal(event)
}

// DecodeEvent decodes one CBOR-encoded Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := traceDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// EncodeHeader encodes a tagged segment header.
func EncodeHeader(h Header) ([]byte, error) {
	return traceEncMode.Marshal(h)
}

// DecodeHeader decodes a tagged segment header and checks its version.
func DecodeHeader(data []byte) (Header, error) {
	var h Header
	if err := traceDecMode.Unmarshal(data, &h); err != nil {
		return Header{}, err
	}
	if h.Version == 0 || h.Version > FormatVersion {
		return h, fmt.Errorf("%w: %d", ErrUnsupportedFormat, h.Version)
	}
	return h, nil
}

// isTagged reports whether a raw data item starts with a CBOR tag
// (major type 6).
func isTagged(raw []byte) bool {
	return len(raw) > 0 && raw[0]>>5 == 6
}

// NewEncoder creates a streaming trace encoder writing to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return traceEncMode.NewEncoder(w)
}

// NewDecoder creates a streaming trace decoder reading from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return traceDecMode.NewDecoder(r)
}
