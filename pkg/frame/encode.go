package frame

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxFrameLen is the longest frame the length byte can declare.
const MaxFrameLen = 0xff

// Color is the intensity of the channels of one node, 0 is off.
type Color struct {
	Red   byte `json:"red"`
	Green byte `json:"green"`
	Blue  byte `json:"blue"`
}

// Get gets the intensity of a channel.
func (c Color) Get(ch Channel) byte {
	switch ch {
	case Red:
		return c.Red
	case Green:
		return c.Green
	case Blue:
		return c.Blue
	}
	return 0
}

// Set sets the intensity of a channel.
func (c *Color) Set(ch Channel, val byte) {
	switch ch {
	case Red:
		c.Red = val
	case Green:
		c.Green = val
	case Blue:
		c.Blue = val
	}
}

// String formats the color as #rrggbb.
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.Red, c.Green, c.Blue)
}

// ColorFromCompare converts the compare value of a channel to intensity.
func ColorFromCompare(compare byte) byte {
	return 0xff - compare
}

// ParseColor parses "#rrggbb", "rrggbb" or decimal "r,g,b".
func ParseColor(s string) (c Color, err error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		items := strings.Split(s, ",")
		if len(items) != int(NumChannels) {
			return c, fmt.Errorf("invalid color %q: expect r,g,b", s)
		}
		for n, item := range items {
			val, err := strconv.ParseUint(strings.TrimSpace(item), 10, 8)
			if err != nil {
				return c, fmt.Errorf("invalid color %q: %v", s, err)
			}
			c.Set(Channel(n), byte(val))
		}
		return c, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return c, fmt.Errorf("invalid color %q: expect #rrggbb", s)
	}
	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return c, fmt.Errorf("invalid color %q: %v", s, err)
	}
	return Color{Red: byte(val >> 16), Green: byte(val >> 8), Blue: byte(val)}, nil
}

// Encode builds a frame for a chain of nodes. colors[0] is for the first
// node, extra is appended after all colors and reaches whatever is
// connected after the last node.
func Encode(colors []Color, extra []byte) ([]byte, error) {
	size := 1 + len(colors)*ColorBytes + len(extra) + 1
	if size > MaxFrameLen {
		return nil, ErrFrameTooLong
	}
	b := make([]byte, 0, size)
	b = append(b, byte(size))
	for _, c := range colors {
		b = append(b, c.Red, c.Green, c.Blue)
	}
	b = append(b, extra...)
	b = append(b, Terminator)

	// Each node sees the frame with the colors of previous nodes removed
	// and the length reduced accordingly.
	for hop := 0; hop <= len(colors); hop++ {
		if byte(size-hop*ColorBytes) == Terminator {
			return nil, &EncodeError{Hop: hop}
		}
	}
	for n, v := range b[1 : len(b)-1] {
		if v == Terminator {
			offset := n + 1
			hop := (offset - 1) / ColorBytes
			if hop > len(colors) {
				hop = len(colors)
			}
			return nil, &EncodeError{Hop: hop, Offset: offset - hop*ColorBytes}
		}
	}
	return b, nil
}

// Decode splits a frame into colors for the given number of nodes and the
// remaining passthrough bytes.
func Decode(b []byte, nodes int) (colors []Color, extra []byte, err error) {
	if len(b) == 0 || b[len(b)-1] != Terminator {
		return nil, nil, ErrNoTerminator
	}
	body := b[1 : len(b)-1]
	if len(body) < nodes*ColorBytes {
		return nil, nil, ErrShortFrame
	}
	colors = make([]Color, nodes)
	for n := range colors {
		p := body[n*ColorBytes:]
		colors[n] = Color{Red: p[0], Green: p[1], Blue: p[2]}
	}
	if rest := body[nodes*ColorBytes:]; len(rest) > 0 {
		extra = append([]byte(nil), rest...)
	}
	return
}
