package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrLengthUnderflow indicates the declared length is smaller than the
	// color bytes a node consumes.
	ErrLengthUnderflow = errors.New("declared length underflow")
	// ErrFrameTooLong indicates the frame doesn't fit the length byte.
	ErrFrameTooLong = errors.New("frame too long")
	// ErrNoTerminator indicates a frame is not terminated.
	ErrNoTerminator = errors.New("frame not terminated")
	// ErrShortFrame indicates a frame carries fewer colors than expected.
	ErrShortFrame = errors.New("frame too short")
)

// EncodeError reports a byte which would be taken as terminator.
type EncodeError struct {
	// Hop is the index of the node receiving the byte.
	Hop int
	// Offset is the position of the byte in the frame seen by that node.
	Offset int
}

// Error implements error.
func (e *EncodeError) Error() string {
	return fmt.Sprintf("terminator value at offset %d for node %d", e.Offset, e.Hop)
}
