package main

import (
	"os"

	"github.com/fleetguard/fleetguard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
