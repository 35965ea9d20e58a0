package main

import (
	"os"

	"securebank/cmd/bankctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
