package telemetry

import (
	"context"
	"encoding/json"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/ledchain/pkg/node"
)

// Topics relative to the prefix of a node.
const (
	TopicMeta  = "meta"
	TopicFrame = "frame"
)

// Meta describes a node.
type Meta struct {
	Description string            `json:"description,omitempty"`
	Port        string            `json:"port,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Reporter publishes frame events of a node. The retained meta topic is
// cleared when the node goes offline.
type Reporter struct {
	Queue  *Queue
	NodeID string
	Meta   Meta

	metaJSON []byte
}

// NewReporter creates a Reporter.
func NewReporter(brokerURL, nodeID string, meta Meta) (*Reporter, error) {
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	r := &Reporter{NodeID: nodeID, Meta: meta, metaJSON: metaJSON}
	opts.SetBinaryWill(topicPrefix+r.topic(TopicMeta), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("ledchain:" + nodeID)
	}
	r.Queue = NewQueue(opts, topicPrefix)
	r.Queue.OnConnect = func(*Queue) { r.publishMeta(r.metaJSON) }
	return r, nil
}

// NodeTopic gets the topic of a node.
func NodeTopic(nodeID, name string) string {
	return nodeID + "/" + name
}

// SplitNodeTopic splits a topic into node ID and name.
func SplitNodeTopic(topic string) (nodeID, name string) {
	if n := strings.LastIndex(topic, "/"); n >= 0 {
		return topic[:n], topic[n+1:]
	}
	return "", topic
}

func (r *Reporter) topic(name string) string {
	return NodeTopic(r.NodeID, name)
}

func (r *Reporter) publishMeta(payload []byte) paho.Token {
	return r.Queue.PubWith(r.topic(TopicMeta), payload, 1, true)
}

// Name implements Named.
func (r *Reporter) Name() string {
	return "telemetry"
}

// FrameDone implements node.FrameObserver. It doesn't wait for the
// delivery so the node is not blocked by the broker.
func (r *Reporter) FrameDone(ctx context.Context, ev node.FrameEvent) {
	payload, err := EncodeFrameEvent(ev)
	if err != nil {
		glog.Errorf("encode frame event: %v", err)
		return
	}
	r.Queue.Pub(r.topic(TopicFrame), payload)
}

// Run implements Runnable.
func (r *Reporter) Run(ctx context.Context) error {
	token := r.Queue.Connect()
	go func() {
		if token.Wait(); token.Error() != nil {
			glog.Warningf("MQTT connect: %v", token.Error())
		}
	}()
	<-ctx.Done()
	if r.Queue.Client.IsConnected() {
		r.publishMeta(nil).Wait()
	}
	r.Queue.Close()
	return ctx.Err()
}
