package main

import (
	"os"

	"github.com/go-delve/lldwarf/cmd/lldwarf/cmds"
	"github.com/go-delve/lldwarf/pkg/config"
)

func main() {
	if err := cmds.New(config.LoadConfig()).Execute(); err != nil {
		os.Exit(1)
	}
}
