// Package sim simulates a chain of nodes in process.
package sim

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/ledchain/pkg/framework"
	"github.com/robotalks/ledchain/pkg/frame"
	"github.com/robotalks/ledchain/pkg/hw"
	"github.com/robotalks/ledchain/pkg/node"
)

// FrameHandler is notified when a node in the chain finishes a frame.
type FrameHandler func(index int, ev node.FrameEvent)

// Chain is a chain of nodes, the transmit side of each node connected to
// the receive side of the next one.
type Chain struct {
	Nodes     []*node.Node
	Registers []*hw.Registers
	OnFrame   FrameHandler

	upstream   net.Conn
	downstream net.Conn
	conns      []net.Conn

	sinkLock  sync.Mutex
	sink      io.Writer
	serveLock sync.Mutex
}

// NewChain creates a chain of n nodes.
func NewChain(n int, policy frame.LengthPolicy) *Chain {
	c := &Chain{}
	var rx net.Conn
	c.upstream, rx = net.Pipe()
	c.conns = append(c.conns, c.upstream, rx)
	for i := 0; i < n; i++ {
		tx, nextRx := net.Pipe()
		c.conns = append(c.conns, tx, nextRx)
		regs := hw.NewRegisters()
		nd := node.New(struct {
			io.Reader
			io.Writer
		}{rx, tx}, regs).WithLengthPolicy(policy)
		nd.ID = fmt.Sprintf("node%d", i)
		index := i
		nd.Observer = node.FrameDoneFunc(func(ctx context.Context, ev node.FrameEvent) {
			if h := c.OnFrame; h != nil {
				h(index, ev)
			}
		})
		c.Nodes = append(c.Nodes, nd)
		c.Registers = append(c.Registers, regs)
		rx = nextRx
	}
	c.downstream = rx
	return c
}

// Name implements Named.
func (c *Chain) Name() string {
	return "chain"
}

// WithForwardTruncated sets whether nodes forward the terminator of
// truncated frames.
func (c *Chain) WithForwardTruncated(forward bool) *Chain {
	for _, nd := range c.Nodes {
		nd.WithForwardTruncated(forward)
	}
	return c
}

// Colors gets the current colors of all nodes.
func (c *Chain) Colors() []frame.Color {
	colors := make([]frame.Color, len(c.Registers))
	for n, regs := range c.Registers {
		colors[n] = regs.Color()
	}
	return colors
}

// Write writes to the first node. It blocks until the bytes are received.
func (c *Chain) Write(p []byte) (int, error) {
	return c.upstream.Write(p)
}

// SetDownstream sets where the output of the last node goes. The output is
// discarded if w is nil.
func (c *Chain) SetDownstream(w io.Writer) {
	c.sinkLock.Lock()
	c.sink = w
	c.sinkLock.Unlock()
}

// Serve feeds the chain from conn and sends the output back until conn is
// closed. Only one conn is served at a time.
func (c *Chain) Serve(conn io.ReadWriteCloser) error {
	c.serveLock.Lock()
	defer c.serveLock.Unlock()
	defer conn.Close()
	c.SetDownstream(conn)
	defer c.SetDownstream(nil)
	_, err := io.Copy(c, conn)
	return err
}

// Run implements Runnable.
func (c *Chain) Run(ctx context.Context) error {
	runnables := make([]fx.Runnable, 0, len(c.Nodes)+2)
	for _, nd := range c.Nodes {
		runnables = append(runnables, nd)
	}
	runnables = append(runnables,
		fx.NamedRun("downstream", fx.RunFunc(c.pump)),
		fx.NamedRun("closer", fx.Closing(c)))
	return fx.NewRunnerWith(ctx).Go(runnables...).Wait()
}

func (c *Chain) pump(ctx context.Context) error {
	buf := make([]byte, 256)
	for {
		n, err := c.downstream.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		glog.V(3).Infof("downstream % x", buf[:n])
		c.sinkLock.Lock()
		sink := c.sink
		c.sinkLock.Unlock()
		if sink == nil {
			continue
		}
		if _, err := sink.Write(buf[:n]); err != nil {
			glog.Warningf("downstream write: %v", err)
			c.SetDownstream(nil)
		}
	}
}

// Close implements io.Closer.
func (c *Chain) Close() error {
	for _, conn := range c.conns {
		conn.Close()
	}
	return nil
}
