package main

import (
	"os"

	"monitoroff/internal/cli"
)

var version = "change-me"

func main() {
	cli.RootCmd.Version = version
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
