package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// dispatchRecorder applies results the way a node does.
type dispatchRecorder struct {
	tx       []byte
	compares map[Channel]byte
	results  []Result
}

func newDispatchRecorder() *dispatchRecorder {
	return &dispatchRecorder{compares: make(map[Channel]byte)}
}

func (r *dispatchRecorder) feed(d *Dispatcher, in ...byte) *dispatchRecorder {
	for _, b := range in {
		res := d.Dispatch(b)
		r.results = append(r.results, res)
		if res.Action.Transmits() {
			r.tx = append(r.tx, res.Byte)
		}
		if res.Action == ActionCompare {
			r.compares[res.Channel] = res.Byte
		}
	}
	return r
}

func (r *dispatchRecorder) last() Result {
	return r.results[len(r.results)-1]
}

func TestDispatcherScenarios(t *testing.T) {
	testCases := []struct {
		name     string
		policy   LengthPolicy
		forward  bool
		in       []byte
		tx       []byte
		compares map[Channel]byte
	}{
		{
			name:     "colors and passthrough",
			in:       []byte{0x07, 0x00, 0xff, 0x80, 0x41, Terminator},
			tx:       []byte{0x04, 0x41, Terminator},
			compares: map[Channel]byte{Red: 0xff, Green: 0x00, Blue: 0x7f},
		},
		{
			name:     "colors only",
			in:       []byte{0x05, 1, 2, 3, Terminator},
			tx:       []byte{0x02, Terminator},
			compares: map[Channel]byte{Red: 0xfe, Green: 0xfd, Blue: 0xfc},
		},
		{
			name:     "underflow wraps",
			in:       []byte{0x01, Terminator},
			tx:       []byte{0xfe},
			compares: map[Channel]byte{},
		},
		{
			name:     "underflow wraps and forwards terminator",
			forward:  true,
			in:       []byte{0x01, Terminator},
			tx:       []byte{0xfe, Terminator},
			compares: map[Channel]byte{},
		},
		{
			name:     "underflow saturates",
			policy:   LengthSaturate,
			in:       []byte{0x02, 0x10, Terminator},
			tx:       []byte{0x00},
			compares: map[Channel]byte{Red: 0xef},
		},
		{
			name:     "underflow faults",
			policy:   LengthFault,
			in:       []byte{0x00, 1, 2, 3, 4, 5, Terminator},
			compares: map[Channel]byte{Red: 0xfe, Green: 0xfd, Blue: 0xfc},
		},
		{
			name:     "immediate terminator",
			in:       []byte{Terminator},
			compares: map[Channel]byte{},
		},
		{
			name:     "truncated after green",
			in:       []byte{0x09, 0x20, 0x30, Terminator},
			tx:       []byte{0x06},
			compares: map[Channel]byte{Red: 0xdf, Green: 0xcf},
		},
		{
			name:     "truncated after red forwards terminator",
			forward:  true,
			in:       []byte{0x09, 0x20, Terminator},
			tx:       []byte{0x06, Terminator},
			compares: map[Channel]byte{Red: 0xdf},
		},
		{
			name:     "underflow faults without forwarding",
			policy:   LengthFault,
			forward:  true,
			in:       []byte{0x01, 0x20, Terminator},
			compares: map[Channel]byte{Red: 0xdf},
		},
		{
			name:     "declared length not validated",
			in:       []byte{0x04, 1, 2, 3, 9, 8, 7, Terminator},
			tx:       []byte{0x01, 9, 8, 7, Terminator},
			compares: map[Channel]byte{Red: 0xfe, Green: 0xfd, Blue: 0xfc},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := Dispatcher{Policy: tc.policy, ForwardTruncated: tc.forward}
			r := newDispatchRecorder().feed(&d, tc.in...)
			require.Equal(t, tc.tx, r.tx)
			require.Equal(t, tc.compares, r.compares)
			require.True(t, r.last().Terminated)
			require.Equal(t, 0, d.Offset())
			require.Equal(t, StateAwaitingLength, d.State())
		})
	}
}

func TestDispatcherOffsetCycling(t *testing.T) {
	var d Dispatcher
	expected := []State{
		StateAwaitingRed,
		StateAwaitingGreen,
		StateAwaitingBlue,
		StatePassthrough,
		StatePassthrough,
		StatePassthrough,
	}
	for k, b := range []byte{10, 20, 30, 40, 50, 60} {
		r := d.Dispatch(b)
		require.Equalf(t, expected[k], r.State, "byte %d", k)
		require.False(t, r.Terminated)
		if k < 4 {
			require.Equal(t, k+1, d.Offset())
		} else {
			require.Equal(t, int(StatePassthrough), d.Offset())
		}
	}

	for n := 0; n < 1000; n++ {
		d.Dispatch(0x55)
	}
	require.Equal(t, StatePassthrough, d.State())

	r := d.Dispatch(Terminator)
	require.True(t, r.Terminated)
	require.False(t, r.Truncated)
	require.Equal(t, StateAwaitingLength, r.State)

	// the next frame starts over.
	r = d.Dispatch(0x08)
	require.Equal(t, ActionEcho, r.Action)
	require.Equal(t, byte(0x05), r.Byte)
}

func TestDispatcherTerminatorAtAnyOffset(t *testing.T) {
	for _, forward := range []bool{false, true} {
		for offset := 0; offset <= 5; offset++ {
			d := Dispatcher{ForwardTruncated: forward}
			r := newDispatchRecorder()
			prefix := []byte{0x0a, 1, 2, 3, 4}[:offset]
			r.feed(&d, prefix...)
			before, sent := len(r.compares), len(r.tx)
			r.feed(&d, Terminator)
			last := r.last()
			truncated := offset > 0 && offset < 4
			require.Truef(t, last.Terminated, "offset %d", offset)
			require.Equalf(t, truncated, last.Truncated, "offset %d", offset)
			require.Equalf(t, before, len(r.compares), "terminator written to channel at offset %d", offset)
			switch {
			case offset == 0, truncated && !forward:
				require.Equalf(t, ActionNone, last.Action, "offset %d forward %v", offset, forward)
				require.Len(t, r.tx, sent)
			default:
				require.Equalf(t, ActionTerminate, last.Action, "offset %d forward %v", offset, forward)
				require.Equal(t, Terminator, r.tx[len(r.tx)-1])
			}
			require.Equal(t, 0, d.Offset())
		}
	}
}

func TestDispatcherLengthEchoFirst(t *testing.T) {
	var d Dispatcher
	r := d.Dispatch(0x20)
	require.Equal(t, ActionEcho, r.Action)
	require.Equal(t, byte(0x1d), r.Byte)
	require.False(t, r.Underflow)
	require.NoError(t, r.Err)
	for _, ch := range []Channel{Red, Green, Blue} {
		r = d.Dispatch(0x40)
		require.Equal(t, ActionCompare, r.Action)
		require.Equal(t, ch, r.Channel)
		require.Equal(t, byte(0xbf), r.Byte)
	}
}

func TestDispatcherLengthFault(t *testing.T) {
	d := Dispatcher{Policy: LengthFault}
	r := d.Dispatch(0x02)
	require.Equal(t, ActionNone, r.Action)
	require.True(t, r.Underflow)
	require.Equal(t, ErrLengthUnderflow, r.Err)
	require.Equal(t, StateAwaitingRed, r.State)

	// a faulted frame doesn't affect the next one.
	newDispatchRecorder().feed(&d, 1, 2, 3, 4, Terminator)
	r = d.Dispatch(0x06)
	require.Equal(t, ActionEcho, r.Action)
	require.Equal(t, byte(0x03), r.Byte)
	require.NoError(t, r.Err)
}

func TestDispatcherReset(t *testing.T) {
	var d Dispatcher
	newDispatchRecorder().feed(&d, 0x09, 1, 2)
	require.Equal(t, StateAwaitingBlue, d.State())
	d.Reset()
	require.Equal(t, StateAwaitingLength, d.State())
	r := d.Dispatch(Terminator)
	require.Equal(t, ActionNone, r.Action)
}

func TestLengthPolicy(t *testing.T) {
	testCases := []struct {
		policy LengthPolicy
		in     byte
		out    byte
		err    error
	}{
		{LengthWrap, 3, 0, nil},
		{LengthWrap, 0xff, 0xfc, nil},
		{LengthWrap, 2, 0xff, nil},
		{LengthWrap, 0, 0xfd, nil},
		{LengthSaturate, 1, 0, nil},
		{LengthSaturate, 10, 7, nil},
		{LengthFault, 2, 0, ErrLengthUnderflow},
		{LengthFault, 3, 0, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.policy.String(), func(t *testing.T) {
			out, err := tc.policy.Echo(tc.in)
			require.Equal(t, tc.err, err)
			require.Equal(t, tc.out, out)
		})
	}
}

func TestParseLengthPolicy(t *testing.T) {
	for _, p := range []LengthPolicy{LengthWrap, LengthSaturate, LengthFault} {
		parsed, err := ParseLengthPolicy(p.String())
		require.NoError(t, err)
		require.Equal(t, p, parsed)
	}
	p, err := ParseLengthPolicy("Saturate")
	require.NoError(t, err)
	require.Equal(t, LengthSaturate, p)
	_, err = ParseLengthPolicy("clamp")
	require.Error(t, err)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "awaiting-length", StateAwaitingLength.String())
	require.Equal(t, "passthrough", StatePassthrough.String())
	require.Equal(t, "state(9)", State(9).String())
	require.Equal(t, "green", Green.String())
}
