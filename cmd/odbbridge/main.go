package main

import (
	"os"

	"odbbridge/cmd/odbbridge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(commands.ExitCode(err))
	}
}
