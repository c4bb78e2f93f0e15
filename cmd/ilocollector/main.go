package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amrinderguler/ilo-collector/internal/collector"
	"github.com/amrinderguler/ilo-collector/internal/config"
	"github.com/amrinderguler/ilo-collector/internal/logger"
	"github.com/amrinderguler/ilo-collector/internal/pid"
	"github.com/amrinderguler/ilo-collector/internal/redfish"
	"github.com/amrinderguler/ilo-collector/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		if config.IsHelp(err) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger.Init(cfg.Debug, logger.IsService())
	logger.Debug().Msg("Config loaded")

	if err := pid.Write(); err != nil {
		logger.ErrorWithCode(err).Msg("Failed to claim PID file")
		return 1
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("Failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	deviceConfig := redfish.Config{
		Host:           cfg.Host,
		Username:       cfg.Username,
		Password:       cfg.Password,
		Insecure:       cfg.InsecureTLS,
		Timeout:        cfg.PerRequestTimeout(),
		SessionRefresh: cfg.SessionRefresh,
	}

	sessions, err := redfish.NewManager(deviceConfig)
	if err != nil {
		logger.ErrorWithCode(err).Msg("Failed to initialize session manager")
		return 1
	}
	defer sessions.Close()

	sink, err := telemetry.NewSink(ctx, telemetry.Config{
		URI:        cfg.MongoURI,
		Database:   cfg.MongoDatabase,
		Collection: cfg.MongoCollection,
		ArchiveDir: cfg.ArchiveDir,
		Enabled:    !cfg.Monitor,
	})
	if err != nil {
		logger.ErrorWithCode(err).Msg("Failed to initialize persistence sink")
		return 1
	}
	defer closeSink(sink)

	loop, err := collector.New(sessions, redfish.NewFetcher(deviceConfig), sink, cfg.CollectionInterval())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize collector")
		return 1
	}

	if cfg.Monitor {
		logger.Info().Msg("Monitor mode activated, records will not be persisted")
	}

	if err := loop.Run(ctx); err != nil {
		logger.ErrorWithCode(err).Msg("Collector halted")
		return 1
	}

	logger.Info().Msg("Exiting...")

	return 0
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func closeSink(sink telemetry.Sink) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sink.Close(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to close persistence sink")
	}
}
