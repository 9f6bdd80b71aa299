package frames

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ledchain/pkg/cli/sh"
	"github.com/robotalks/ledchain/pkg/frame"
)

func TestParseColors(t *testing.T) {
	colors, err := ParseColors([]string{"#ff0080", "1,2,3"})
	require.NoError(t, err)
	require.Equal(t, []frame.Color{
		{Red: 0xff, Blue: 0x80},
		{Red: 1, Green: 2, Blue: 3},
	}, colors)

	_, err = ParseColors([]string{"#ff0080", "red"})
	require.Error(t, err)
}

func TestParseBytes(t *testing.T) {
	data, err := ParseBytes([]string{"07", "0x00", "FF8041", "0d"})
	require.NoError(t, err)
	require.Equal(t, []byte{0x07, 0x00, 0xff, 0x80, 0x41, frame.Terminator}, data)

	for _, arg := range []string{"", "0x", "123", "zz"} {
		_, err = ParseBytes([]string{arg})
		require.Errorf(t, err, "arg %q", arg)
	}
}

func TestRepeat(t *testing.T) {
	c := frame.Color{Green: 0x40}
	colors, err := Repeat(3, c)
	require.NoError(t, err)
	require.Equal(t, []frame.Color{c, c, c}, colors)

	data, err := frame.Encode(colors, nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0x0b, 0, 0x40, 0, 0, 0x40, 0, 0, 0x40, 0, frame.Terminator}, data)

	_, err = Repeat(0, c)
	require.Error(t, err)
}

func TestDescribeFrame(t *testing.T) {
	desc, err := DescribeFrame([]byte{0x0a, 0xff, 0, 0x80, 1, 2, 3, 0xaa, 0xbb, frame.Terminator}, 2)
	require.NoError(t, err)
	require.Equal(t, "node0=#ff0080 node1=#010203 extra=aa bb", desc)

	desc, err = DescribeFrame([]byte{0x05, 0, 0x40, 0, frame.Terminator}, 1)
	require.NoError(t, err)
	require.Equal(t, "node0=#004000", desc)

	_, err = DescribeFrame([]byte{0x05, 0, 0x40, 0, frame.Terminator}, 2)
	require.Equal(t, frame.ErrShortFrame, err)
	_, err = DescribeFrame([]byte{0x05, 0, 0x40}, 1)
	require.Equal(t, frame.ErrNoTerminator, err)
}

type testPort struct {
	written  chan []byte
	writeErr error
	closed   chan struct{}
}

func newTestPort(writeErr error) *testPort {
	return &testPort{
		written:  make(chan []byte, 4),
		writeErr: writeErr,
		closed:   make(chan struct{}),
	}
}

func (p *testPort) Read(b []byte) (int, error) {
	<-p.closed
	return 0, io.EOF
}

func (p *testPort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written <- append([]byte(nil), b...)
	return len(b), nil
}

func (p *testPort) Close() error {
	close(p.closed)
	return nil
}

func TestCommandsSend(t *testing.T) {
	s := sh.New()
	port := newTestPort(nil)
	s.Attach("test", port)
	defer s.Disconnect()

	require.NoError(t, s.Shell.Process("chain", "2", "#000040"))
	require.Equal(t, []byte{0x08, 0, 0, 0x40, 0, 0, 0x40, frame.Terminator}, <-port.written)
	require.NoError(t, s.Shell.Process("raw", "0100"))
	require.Equal(t, []byte{0x01, 0x00}, <-port.written)
	require.NoError(t, s.Shell.Process("decode", "1", "050040000d"))
	require.Error(t, s.Shell.Process("decode", "2", "050040000d"))
}

func TestCommandsSendError(t *testing.T) {
	s := sh.New()
	writeErr := errors.New("write failed")
	s.Attach("test", newTestPort(writeErr))
	defer s.Disconnect()

	require.Equal(t, writeErr, s.Shell.Process("color", "#ff0000"))
	require.Equal(t, writeErr, s.Shell.Process("off", "1"))
	require.Equal(t, writeErr, s.Shell.Process("raw", "0d"))
}
