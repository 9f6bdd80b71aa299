// Package frame implements the ledchain wire protocol.
package frame

// A ledchain frame travels along a daisy chain of LED nodes over serial
// links. Every node takes the first three color bytes for itself and
// relays a shorter frame to the next node:
//
//   [N] [red] [green] [blue] [passthrough ...] [0x0D]
//
// N is the length of the frame in bytes. A node echoes N-3 downstream as
// the length of the frame it relays. The terminator 0x0D is never data. It
// is relayed with the passthrough bytes; a frame truncated before them ends
// at the node unless Dispatcher.ForwardTruncated is set.
//
// There is no checksum and no escaping: color and passthrough bytes must
// not carry 0x0D. Encode refuses to produce such frames.
//
// Producer: ledctl or an upstream node
// Consumer: ledchaind
