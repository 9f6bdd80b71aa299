package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"

	"github.com/golang/glog"

	fx "github.com/robotalks/ledchain/pkg/framework"
	"github.com/robotalks/ledchain/pkg/frame"
	"github.com/robotalks/ledchain/pkg/node"
	"github.com/robotalks/ledchain/pkg/sim"
	"github.com/robotalks/ledchain/pkg/sim/visualization/see"
	"github.com/robotalks/ledchain/pkg/transport"
)

var (
	listenAddr   = ":8080"
	numNodes     = 3
	lengthPolicy = frame.LengthWrap.String()
	forward      bool
)

func init() {
	flag.StringVar(&listenAddr, "listen", listenAddr, "Address to serve the chain, as ws://ADDR/chain.")
	flag.IntVar(&numNodes, "nodes", numNodes, "Number of nodes in the chain.")
	flag.StringVar(&lengthPolicy, "length-policy", lengthPolicy, "Length underflow policy: wrap, saturate or fault.")
	flag.BoolVar(&forward, "forward-truncated", forward, "Forward the terminator of frames truncated before passthrough bytes.")
	see.SetupFlags()
}

func main() {
	flag.Parse()

	policy, err := frame.ParseLengthPolicy(lengthPolicy)
	if err != nil {
		log.Fatalln(err)
	}
	chain := sim.NewChain(numNodes, policy).WithForwardTruncated(forward)
	chain.OnFrame = func(index int, ev node.FrameEvent) {
		glog.Infof("node%d: frame %d color=%v", index, ev.Seq, ev.Color)
	}
	if conf := see.Default(); conf.Enabled {
		vis := conf.NewAdapter()
		if err := vis.Reset(numNodes); err != nil {
			log.Fatalln(err)
		}
		chain.OnFrame = vis.NodeChanged
	}

	mux := http.NewServeMux()
	mux.Handle("/chain", transport.WebsocketHandler(func(conn io.ReadWriteCloser) {
		if err := chain.Serve(conn); err != nil {
			glog.Warningf("serve: %v", err)
		}
	}))
	server := &http.Server{Addr: listenAddr, Handler: mux}
	serve := fx.RunFunc(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			server.Close()
		}()
		glog.Infof("serving %d nodes on ws://%s/chain", numNodes, listenAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return ctx.Err()
	})

	if err := fx.NewRunner().HandleSignals().Go(chain, fx.NamedRun("server", serve)).Wait(); err != nil {
		log.Fatalln(err)
	}
}
