package main

import (
	"os"

	"github.com/k-negishi/pet-calendar/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
