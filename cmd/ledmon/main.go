package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/ledchain/pkg/telemetry"
)

var (
	mqttURL = "mqtt://localhost:1883/ledchain/"
)

func init() {
	if val := os.Getenv("LEDCHAIN_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := telemetry.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q.Sub("#", func(topic string, payload []byte) {
		nodeID, name := telemetry.SplitNodeTopic(topic)
		switch name {
		case telemetry.TopicMeta:
			if len(payload) == 0 {
				log.Printf("%s: offline", nodeID)
			} else {
				log.Printf("%s: online %s", nodeID, string(payload))
			}
		case telemetry.TopicFrame:
			ev, err := telemetry.DecodeFrameEvent(payload)
			if err != nil {
				log.Printf("%s: bad frame event: %v", nodeID, err)
				return
			}
			log.Printf("%s: frame %d len=%d color=%v updated=%d relayed=%d truncated=%v underflow=%v",
				nodeID, ev.Seq, ev.Declared, ev.Color, ev.Updated, ev.Relayed, ev.Truncated, ev.Underflow)
		}
	})
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
