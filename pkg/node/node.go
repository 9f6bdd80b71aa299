// Package node runs the frame dispatcher of a ledchain node against a
// serial channel, a PWM backend and a status indicator.
package node

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/ledchain/pkg/frame"
	"github.com/robotalks/ledchain/pkg/hw"
)

// FrameEvent describes a frame once its terminator is received.
type FrameEvent struct {
	// Seq counts frames received by the node, starting from 1.
	Seq uint64
	// Declared is the length byte of the frame.
	Declared byte
	// Color is the color of the node after the frame.
	Color frame.Color
	// Updated is the number of channels set by the frame.
	Updated int
	// Relayed is the number of passthrough bytes sent downstream.
	Relayed int
	Truncated bool
	Underflow bool
}

// FrameObserver is notified when a frame is done.
type FrameObserver interface {
	FrameDone(context.Context, FrameEvent)
}

// FrameDoneFunc is func form of FrameObserver.
type FrameDoneFunc func(context.Context, FrameEvent)

// FrameDone implements FrameObserver.
func (f FrameDoneFunc) FrameDone(ctx context.Context, ev FrameEvent) {
	f(ctx, ev)
}

// Stats are counters of a node.
type Stats struct {
	Bytes      uint64
	Frames     uint64
	Truncated  uint64
	Underflows uint64
	Relayed    uint64
}

// Node receives frames byte by byte and applies them.
type Node struct {
	ID         string
	ReadWriter io.ReadWriter
	PWM        hw.PWM
	Indicator  hw.Indicator
	Observer   FrameObserver

	dispatcher frame.Dispatcher
	receiving  bool
	current    FrameEvent
	color      frame.Color
	stats      Stats
	lock       sync.RWMutex
}

// New creates a Node.
func New(rw io.ReadWriter, pwm hw.PWM) *Node {
	return &Node{
		ID:         "node",
		ReadWriter: rw,
		PWM:        pwm,
		Indicator:  hw.NopIndicator{},
	}
}

// Name implements Named.
func (n *Node) Name() string {
	return n.ID
}

// WithLengthPolicy sets the length underflow policy.
func (n *Node) WithLengthPolicy(policy frame.LengthPolicy) *Node {
	n.lock.Lock()
	n.dispatcher.Policy = policy
	n.lock.Unlock()
	return n
}

// WithForwardTruncated sets whether the terminator of a truncated frame is
// forwarded downstream.
func (n *Node) WithForwardTruncated(forward bool) *Node {
	n.lock.Lock()
	n.dispatcher.ForwardTruncated = forward
	n.lock.Unlock()
	return n
}

// State gets the dispatcher state.
func (n *Node) State() frame.State {
	n.lock.RLock()
	defer n.lock.RUnlock()
	return n.dispatcher.State()
}

// Stats gets the counters.
func (n *Node) Stats() Stats {
	n.lock.RLock()
	defer n.lock.RUnlock()
	return n.stats
}

// Color gets the color last set by frames.
func (n *Node) Color() frame.Color {
	n.lock.RLock()
	defer n.lock.RUnlock()
	return n.color
}

// HandleByte processes one received byte. Bytes must be handled one at a
// time, a transmission blocks until the downstream accepts the byte.
func (n *Node) HandleByte(ctx context.Context, b byte) error {
	if !n.receiving {
		if err := n.setStatus(true); err != nil {
			return err
		}
	}

	n.lock.Lock()
	r := n.dispatcher.Dispatch(b)
	n.stats.Bytes++
	n.lock.Unlock()

	switch {
	case r.Action.Transmits():
		if _, err := n.ReadWriter.Write([]byte{r.Byte}); err != nil {
			return err
		}
	case r.Action == frame.ActionCompare:
		if err := n.PWM.SetCompare(r.Channel, r.Byte); err != nil {
			return err
		}
	}
	n.account(b, r)

	if r.Terminated {
		return n.frameDone(ctx, r)
	}
	return nil
}

func (n *Node) account(b byte, r frame.Result) {
	if r.Terminated {
		return
	}
	switch r.Action {
	case frame.ActionCompare:
		n.current.Updated++
		n.lock.Lock()
		n.color.Set(r.Channel, frame.ColorFromCompare(r.Byte))
		n.lock.Unlock()
	case frame.ActionRelay:
		n.current.Relayed++
	}
	if r.State == frame.StateAwaitingRed {
		n.current.Declared = b
		n.current.Underflow = r.Underflow
		if r.Err != nil {
			glog.Warningf("%s: declared length %d: %v", n.ID, b, r.Err)
		}
	}
}

func (n *Node) frameDone(ctx context.Context, r frame.Result) error {
	ev := n.current
	ev.Truncated = r.Truncated
	n.current = FrameEvent{}

	n.lock.Lock()
	n.stats.Frames++
	n.stats.Relayed += uint64(ev.Relayed)
	if ev.Truncated {
		n.stats.Truncated++
	}
	if ev.Underflow {
		n.stats.Underflows++
	}
	ev.Seq, ev.Color = n.stats.Frames, n.color
	n.lock.Unlock()

	if glog.V(2) {
		glog.Infof("%s: frame %d len=%d color=%v relayed=%d truncated=%v",
			n.ID, ev.Seq, ev.Declared, ev.Color, ev.Relayed, ev.Truncated)
	}
	if err := n.setStatus(false); err != nil {
		return err
	}
	if o := n.Observer; o != nil {
		o.FrameDone(ctx, ev)
	}
	return nil
}

func (n *Node) setStatus(on bool) error {
	n.receiving = on
	if ind := n.Indicator; ind != nil {
		return ind.SetStatus(on)
	}
	return nil
}

// Run implements Runnable. It returns when ctx is done or the serial
// channel fails. Closing the ReadWriter unblocks a pending read.
func (n *Node) Run(ctx context.Context) error {
	byteCh, errCh := make(chan byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go n.readLoop(subCtx, byteCh, errCh)
	glog.Infof("%s: running", n.ID)
	for {
		select {
		case b := <-byteCh:
			if err := n.HandleByte(ctx, b); err != nil {
				return stopError(ctx, err)
			}
		case err := <-errCh:
			return stopError(ctx, err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// stopError prefers ctx.Err as the channel is usually closed on stop.
func stopError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (n *Node) readLoop(ctx context.Context, byteCh chan<- byte, errCh chan<- error) {
	buf := make([]byte, 1)
	for {
		c, err := n.ReadWriter.Read(buf)
		if err != nil {
			errCh <- err
			return
		}
		if c == 0 {
			continue
		}
		select {
		case byteCh <- buf[0]:
		case <-ctx.Done():
			return
		}
	}
}
