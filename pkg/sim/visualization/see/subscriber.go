// Package see is the adapter to visualize a simulated chain in
// github.com/robotalks/see.
package see

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/ledchain/pkg/frame"
	"github.com/robotalks/ledchain/pkg/node"
)

// Adapter is the visualization adapter to visualize using
// github.com/robotalks/see. Each message batch is a JSON line.
type Adapter struct {
	Config *Config

	writer io.Writer
	lock   sync.Mutex
}

// NewAdapter creates the adapter.
func NewAdapter(config *Config, w io.Writer) *Adapter {
	return &Adapter{Config: config, writer: w}
}

// NodeID converts node index to ID.
func NodeID(index int) string {
	return fmt.Sprintf("node%d", index)
}

func (a *Adapter) nodeObject(index int, c frame.Color) Object {
	return NewObject("led", NodeID(index)).
		At(float64(index)*a.Config.Spacing, 0).
		Radius(a.Config.Radius).
		Style("fill: " + c.String())
}

// Reset sends the initial state of a chain of n nodes, all off.
func (a *Adapter) Reset(n int) error {
	msgs := []Message{{Action: ActionReset}}
	for i := 0; i < n; i++ {
		msgs = append(msgs, Message{Action: ActionObject, Object: a.nodeObject(i, frame.Color{})})
	}
	return a.send(msgs)
}

// NodeChanged reports the color of a node after a frame. It can be used
// as sim.FrameHandler.
func (a *Adapter) NodeChanged(index int, ev node.FrameEvent) {
	obj := a.nodeObject(index, ev.Color).With("frame", ev.Seq)
	if err := a.send([]Message{{Action: ActionObject, Object: obj}}); err != nil {
		glog.Warningf("see: %v", err)
	}
}

func (a *Adapter) send(msgs []Message) error {
	encoded, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	_, err = fmt.Fprintln(a.writer, string(encoded))
	return err
}
