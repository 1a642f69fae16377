package main

import (
	"os"

	"sotto/cmd/sotto/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
