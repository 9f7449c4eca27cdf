package main

import (
	"os"

	"github.com/brokerdesk/cmd/brokerdesk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
