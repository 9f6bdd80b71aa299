package frame

import (
	"fmt"
	"strings"
)

// Terminator ends every frame.
const Terminator byte = 0x0D

// ColorBytes is the number of bytes each node takes from a frame.
const ColorBytes = 3

// Channel identifies a color channel of a node.
type Channel int

// Color channels in wire order.
const (
	Red Channel = iota
	Green
	Blue
	// NumChannels is the number of color channels.
	NumChannels
)

// String implements fmt.Stringer.
func (c Channel) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// State is the position of the dispatcher in the current frame.
type State int

const (
	// StateAwaitingLength waits for the length byte, the initial state.
	StateAwaitingLength State = iota
	// StateAwaitingRed waits for the red channel byte.
	StateAwaitingRed
	// StateAwaitingGreen waits for the green channel byte.
	StateAwaitingGreen
	// StateAwaitingBlue waits for the blue channel byte.
	StateAwaitingBlue
	// StatePassthrough relays everything until the terminator.
	StatePassthrough
)

var stateNames = [...]string{
	StateAwaitingLength: "awaiting-length",
	StateAwaitingRed:    "awaiting-red",
	StateAwaitingGreen:  "awaiting-green",
	StateAwaitingBlue:   "awaiting-blue",
	StatePassthrough:    "passthrough",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// LengthPolicy decides the length echo when the declared length is
// smaller than ColorBytes.
type LengthPolicy int

const (
	// LengthWrap wraps around in 8 bits, e.g. 1 is echoed as 0xfe.
	LengthWrap LengthPolicy = iota
	// LengthSaturate echoes 0.
	LengthSaturate
	// LengthFault echoes nothing and nothing of the frame goes downstream.
	LengthFault
)

var lengthPolicyNames = [...]string{
	LengthWrap:     "wrap",
	LengthSaturate: "saturate",
	LengthFault:    "fault",
}

// String implements fmt.Stringer.
func (p LengthPolicy) String() string {
	if p >= 0 && int(p) < len(lengthPolicyNames) {
		return lengthPolicyNames[p]
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParseLengthPolicy parses the name of a LengthPolicy.
func ParseLengthPolicy(s string) (LengthPolicy, error) {
	for n, name := range lengthPolicyNames {
		if strings.EqualFold(s, name) {
			return LengthPolicy(n), nil
		}
	}
	return LengthWrap, fmt.Errorf("unknown length policy %q", s)
}

// Echo computes the length echoed downstream for declared length n.
func (p LengthPolicy) Echo(n byte) (byte, error) {
	if n >= ColorBytes {
		return n - ColorBytes, nil
	}
	switch p {
	case LengthSaturate:
		return 0, nil
	case LengthFault:
		return 0, ErrLengthUnderflow
	}
	return n - ColorBytes, nil
}

// Action is the side effect of dispatching one byte.
type Action int

const (
	// ActionNone has no side effect.
	ActionNone Action = iota
	// ActionEcho transmits the length echo in Result.Byte.
	ActionEcho
	// ActionCompare sets Result.Channel to compare value Result.Byte.
	ActionCompare
	// ActionRelay transmits the passthrough byte in Result.Byte.
	ActionRelay
	// ActionTerminate transmits the terminator downstream.
	ActionTerminate
)

// Transmits indicates Result.Byte must be sent downstream.
func (a Action) Transmits() bool {
	return a == ActionEcho || a == ActionRelay || a == ActionTerminate
}

// Result is the result of dispatching one byte.
type Result struct {
	Action  Action
	Byte    byte
	Channel Channel
	// State is the dispatcher state after the byte.
	State State
	// Terminated is set when the byte ended a frame.
	Terminated bool
	// Truncated is set when the frame ended before all colors were set.
	Truncated bool
	// Underflow is set when the declared length was less than ColorBytes.
	Underflow bool
	// Err is ErrLengthUnderflow under LengthFault.
	Err error
}

// Dispatcher consumes a frame byte by byte. The zero value is ready to use
// and waits for the length byte of a frame.
type Dispatcher struct {
	Policy LengthPolicy
	// ForwardTruncated forwards the terminator of a frame truncated before
	// the passthrough bytes, so the downstream node ends its frame too.
	// By default the terminator is only relayed from the passthrough bytes.
	ForwardTruncated bool

	offset int
	// downstream is set once a length echo is sent for the current frame.
	downstream bool
}

// Offset gets the position of the next byte in the current frame.
// It stops counting at the passthrough bucket.
func (d *Dispatcher) Offset() int {
	return d.offset
}

// State gets the current state.
func (d *Dispatcher) State() State {
	return State(d.offset)
}

// Reset abandons the current frame.
func (d *Dispatcher) Reset() {
	d.offset, d.downstream = 0, false
}

// Dispatch consumes one byte.
func (d *Dispatcher) Dispatch(b byte) (r Result) {
	if b == Terminator {
		r.Truncated = d.offset > 0 && d.offset <= int(StateAwaitingBlue)
		if d.downstream && (!r.Truncated || d.ForwardTruncated) {
			r.Action, r.Byte = ActionTerminate, Terminator
		}
		r.Terminated = true
		d.Reset()
		return
	}

	switch state := d.State(); state {
	case StateAwaitingLength:
		r.Underflow = b < ColorBytes
		r.Byte, r.Err = d.Policy.Echo(b)
		if r.Err == nil {
			r.Action, d.downstream = ActionEcho, true
		}
	case StateAwaitingRed, StateAwaitingGreen, StateAwaitingBlue:
		r.Action, r.Channel, r.Byte = ActionCompare, Channel(state-StateAwaitingRed), 0xff-b
	default:
		if d.downstream {
			r.Action, r.Byte = ActionRelay, b
		}
	}
	if d.offset < int(StatePassthrough) {
		d.offset++
	}
	r.State = d.State()
	return
}
