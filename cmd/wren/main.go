package main

import (
	"os"

	"github.com/wrenbot/wren/cmd/wren/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
