package main

import (
	"os"

	"leaveflow/cmd/leaved/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
