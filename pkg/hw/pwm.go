// Package hw provides the PWM and status indicator backends of a node.
package hw

import (
	"sync"

	"github.com/robotalks/ledchain/pkg/frame"
)

// CompareOff is the compare value which turns a channel off.
const CompareOff byte = 0xff

// PWM drives the color channels of a node. A compare value is the high
// time of the channel output within a period of 255 ticks, the LED is lit
// while the output is low: 0 is fully on and 255 is off.
type PWM interface {
	SetCompare(ch frame.Channel, compare byte) error
}

// SetCompareFunc is func form of PWM.
type SetCompareFunc func(frame.Channel, byte) error

// SetCompare implements PWM.
func (f SetCompareFunc) SetCompare(ch frame.Channel, compare byte) error {
	return f(ch, compare)
}

// Registers is an in-memory register file of compare values.
type Registers struct {
	compares [frame.NumChannels]byte
	lock     sync.RWMutex
}

// NewRegisters creates Registers with all channels off.
func NewRegisters() *Registers {
	r := &Registers{}
	for n := range r.compares {
		r.compares[n] = CompareOff
	}
	return r
}

// SetCompare implements PWM.
func (r *Registers) SetCompare(ch frame.Channel, compare byte) error {
	if ch < 0 || ch >= frame.NumChannels {
		return &ChannelError{Channel: ch}
	}
	r.lock.Lock()
	r.compares[ch] = compare
	r.lock.Unlock()
	return nil
}

// Compare gets the compare value of a channel.
func (r *Registers) Compare(ch frame.Channel) byte {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.compares[ch]
}

// Color gets the intensities of the channels.
func (r *Registers) Color() (c frame.Color) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	for n, compare := range r.compares {
		c.Set(frame.Channel(n), frame.ColorFromCompare(compare))
	}
	return
}
