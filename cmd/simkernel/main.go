package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeusync/simkernel/internal/config"
	"github.com/zeusync/simkernel/internal/core/element"
	"github.com/zeusync/simkernel/internal/core/observability/log"
	"github.com/zeusync/simkernel/internal/core/storage"
	"github.com/zeusync/simkernel/internal/injector"
	"github.com/zeusync/simkernel/pkg/concurrent"
)

func main() {
	configPath := flag.String("config", os.Getenv("SIMKERNEL_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := injector.InitializeApp(ctx, cfg)
	if err != nil {
		log.Provide().Fatal("boot failed", log.Error(err))
	}
	defer cleanup()
	logger := app.Log
	defer func() { _ = logger.Sync() }()

	if app.Store != nil {
		if _, err := storage.Restore(ctx, app.Store, app.Router, logger); err != nil {
			logger.Fatal("restore failed", log.Error(err))
		}
	}
	if app.Router.Stats().Entities == 0 {
		if _, err := app.Router.CreateEntity("world", element.Map{"name": "world"}, nil); err != nil {
			logger.Fatal("create world", log.Error(err))
		}
	}
	logger.Info("kernel ready",
		log.Int("types", app.Types.Count()),
		log.Int("entities", app.Router.Stats().Entities),
		log.Strings("scripts", app.Scripts.Classes()),
	)

	var persist concurrent.Task
	if app.Persister != nil {
		persist = app.Persister.Run
	}
	err = concurrent.Run(ctx,
		func(ctx context.Context) error { return app.Router.Run(ctx, nil) },
		persist,
	)
	if err != nil {
		logger.Error("kernel stopped with error", log.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if app.Persister != nil {
		app.Persister.Flush(shutdownCtx, app.Router.Entities())
		_ = app.Persister.Detach()
	}
	if err := app.Tracing(shutdownCtx); err != nil {
		logger.Warn("trace shutdown", log.Error(err))
	}
	logger.Info("kernel stopped", log.Uint64("delivered", app.Router.Stats().Delivered))
}
