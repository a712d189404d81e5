// Command train fits the house price model and writes the artifact the
// dashboard serves.
package main

import (
	"fmt"
	"os"

	"github.com/YuminosukeSato/houseprice/config"
	"github.com/YuminosukeSato/houseprice/pkg/log"
	"github.com/YuminosukeSato/houseprice/trainer"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// Progress goes to stdout, structured logs to stderr.
	out, closer := log.OpenOutput(os.Stderr, cfg.LogFile())
	defer closer.Close()
	log.SetupLogger(cfg.Log.Level, out)
	log.EnableZerologWarnings(out)
	logger := log.GetLogger()

	if _, err := trainer.Run(cfg.Trainer(), os.Stdout, logger); err != nil {
		logger.Error("Training failed.", err)
		return 1
	}
	return 0
}
