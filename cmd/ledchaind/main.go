package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/robotalks/ledchain/pkg/env"
	fx "github.com/robotalks/ledchain/pkg/framework"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()

	conf := env.NewConfig()
	if err := conf.Resolve(flag.CommandLine); err != nil {
		log.Fatalln(err)
	}
	e := conf.MustNewEnv()
	if err := fx.NewRunner().HandleSignals().Go(e.Runnables()...).Wait(); err != nil {
		log.Fatalln(err)
	}
}
