package main

import (
	"os"

	"github.com/instalytics/collector/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
