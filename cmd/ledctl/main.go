package main

import (
	"github.com/robotalks/ledchain/pkg/cli/sh"

	_ "github.com/robotalks/ledchain/pkg/cli/cmds/frames"
)

//go-build: CGO_ENABLED=0

func main() {
	sh.Main()
}
