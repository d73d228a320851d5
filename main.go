package main

import (
	"os"

	"github.com/ghostlogic/agent-installer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
