package main

import (
	"os"

	"github.com/GabrielNunesIT/logbot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
