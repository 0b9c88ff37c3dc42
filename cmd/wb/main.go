package main

import (
	"os"

	"github.com/weedrice/whiteboard-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
