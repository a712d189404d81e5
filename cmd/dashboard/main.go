// Command dashboard serves price predictions and data insight charts for the
// model written by the train command.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/houseprice/artifact"
	"github.com/YuminosukeSato/houseprice/config"
	"github.com/YuminosukeSato/houseprice/dashboard"
	"github.com/YuminosukeSato/houseprice/dataset"
	"github.com/YuminosukeSato/houseprice/pkg/log"
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

	out, closer := log.OpenOutput(os.Stdout, cfg.LogFile())
	defer closer.Close()
	log.SetupLogger(cfg.Log.Level, out)
	log.EnableZerologWarnings(out)
	logger := log.GetLogger()

	dc := cfg.Dashboard()

	// Model and dataset are loaded once; the server never reloads them.
	a, err := artifact.Load(dc.ModelPath)
	if err != nil {
		logger.Error("Failed to load model.", err, log.PathKey, dc.ModelPath)
		return 1
	}
	ds, err := dataset.Load(dc.DataPath)
	if err != nil {
		logger.Error("Failed to load dataset.", err, log.PathKey, dc.DataPath)
		return 1
	}
	logger.Info("Model loaded.",
		log.OperationKey, log.OperationLoad,
		log.EstimatorIDKey, a.ID.String(),
		log.R2ScoreKey, a.Metrics.R2,
		log.SamplesKey, ds.Len(),
	)

	background, err := dashboard.LoadBackground(dc.BackgroundPath)
	if err != nil {
		logger.Warn("Background image unavailable, using plain background.", log.ErrAttrKey, err.Error())
		background = ""
	}

	svc, err := dashboard.NewService(a.Model, ds, a.ID.String(), logger)
	if err != nil {
		logger.Error("Failed to create service.", err)
		return 1
	}
	server := dashboard.NewServer(dc.Addr, dashboard.NewHandler(svc, background, logger), dc.ShutdownTimeout, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed.", err)
			return 1
		}
		return 0
	case <-quit:
	}

	if err := server.Stop(); err != nil {
		logger.Error("Graceful shutdown failed.", err)
		return 1
	}
	return 0
}
