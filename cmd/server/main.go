package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wadjakorntonsri/linkgate/pkg/app"
	"github.com/wadjakorntonsri/linkgate/pkg/config"
	"github.com/wadjakorntonsri/linkgate/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flush, err := logging.InitSentry(cfg.SentryDSN, cfg.AppEnv)
	if err != nil {
		return err
	}
	defer flush()

	logger, closer := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		return err
	}
	defer a.Close()

	return a.Run(ctx)
}
