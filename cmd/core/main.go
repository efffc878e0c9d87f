// Command core wires the offline data/sync layer together and runs it until
// interrupted. The same composition is what an embedding client application
// performs; this binary exists for local development and smoke testing.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/EMMADEKO10/restaurant-sub000/internal/config"
	"github.com/EMMADEKO10/restaurant-sub000/internal/connectivity"
	"github.com/EMMADEKO10/restaurant-sub000/internal/db"
	"github.com/EMMADEKO10/restaurant-sub000/internal/logging"
	"github.com/EMMADEKO10/restaurant-sub000/internal/offline"
	"github.com/EMMADEKO10/restaurant-sub000/internal/remote"
	syncpkg "github.com/EMMADEKO10/restaurant-sub000/internal/sync"
)

// Version is set at build time.
var Version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	logging.Init(os.Stdout, cfg.LogLevel)
	logger := logging.Component("core")
	logger.WithField("version", Version).Info("starting offline data core")

	database, err := db.Open(cfg.DataDir)
	if err != nil {
		logger.WithError(err).Fatal("failed to open local store")
	}
	defer database.Close()

	migrator := db.NewMigrator(database.DB)
	if err := migrator.Initialize(); err != nil {
		logger.WithError(err).Fatal("failed to initialize migrations")
	}
	if err := migrator.Up(); err != nil {
		logger.WithError(err).Fatal("failed to apply migrations")
	}

	store := db.NewStore(database)
	client := remote.NewClient(cfg.RemoteBaseURL, cfg.HTTPTimeout)
	engine := syncpkg.NewEngine(store, client, cfg.MaxRetries)
	facade := offline.NewFacade(store, client, engine, "")

	bridge := connectivity.NewBridge(engine, client, facade, &connectivity.Config{
		SyncInterval:   cfg.SyncInterval,
		StatusInterval: cfg.StatusInterval,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bridge.Start(ctx)

	waitForKillSignal()

	logger.Info("shutting down")
	bridge.Stop()
}

func waitForKillSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
}
