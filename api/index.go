package handler

import (
	"context"
	"net/http"
	"os"

	"github.com/wadjakorntonsri/linkgate/pkg/app"
	"github.com/wadjakorntonsri/linkgate/pkg/config"
	"github.com/wadjakorntonsri/linkgate/pkg/logging"
)

var mux http.Handler

func init() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	if _, err := logging.InitSentry(cfg.SentryDSN, cfg.AppEnv); err != nil {
		panic(err)
	}

	logger, _ := logging.New(logging.Options{Level: cfg.LogLevel, Output: os.Stdout})

	// On Vercel a local db.sqlite is ephemeral; point DATABASE_URL at Turso.
	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		panic(err)
	}

	mux = a.Handler()
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
