package main

import (
	"os"

	"shieldxfer/cmd/shieldxfer/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
