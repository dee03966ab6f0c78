// main is the entry point for the radar CLI.
package main

import (
	"os"

	"github.com/huangsam/radar/cmd"
	"github.com/huangsam/radar/internal/contract"
	"github.com/huangsam/radar/internal/iocache"
)

func main() {
	defer iocache.CloseCaching()

	err := cmd.Execute()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	if err != nil {
		iocache.CloseCaching()
		contract.Logger().WithError(err).Error("radar failed")
		os.Exit(1)
	}
}
