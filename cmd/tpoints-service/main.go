package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/tpoints/internal/app"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := cfg.ConfigureLogging(); err != nil {
		log.WithError(err).Fatal("invalid logging configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"scheduler":      cfg.SchedulerEnabled,
	}).Info("starting tpoints service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("service stopped with error")
	}

	log.Info("tpoints service stopped")
}
