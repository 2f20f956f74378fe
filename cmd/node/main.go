package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/charleszheng44/leader-elect/internal/config"
	"github.com/charleszheng44/leader-elect/internal/election"
	"github.com/charleszheng44/leader-elect/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file providing defaults")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer logger.Sync()

	node, err := election.New(election.Config{
		ID:               cfg.ID,
		Peers:            cfg.Peers,
		AdvertiseAddress: cfg.AdvertiseAddress,
	}, logger)
	if err != nil {
		logger.Fatalw("failed to build node", "err", err)
	}

	ln, err := node.Listen()
	if err != nil {
		logger.Fatalw("failed to bind advertise address", "address", cfg.AdvertiseAddress, "err", err)
	}
	logger.Infow("listening", "address", cfg.AdvertiseAddress, "node_id", cfg.ID)

	errCh := make(chan error, 4)
	go func() { errCh <- node.AcceptLoop(ln) }()

	if err := node.DialPeers(); err != nil {
		logger.Fatalw("failed to connect to peers", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := node.Bootstrap(); err != nil {
		logger.Fatalw("bootstrap election failed", "err", err)
	}

	go func() { errCh <- node.HeartbeatLoop(ctx) }()
	go func() { errCh <- node.LeaderCheckLoop(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Infow("received signal, shutting down", "signal", sig.String())
		cancel()
		os.Exit(0)
	case err := <-errCh:
		logger.Errorw("fatal error, shutting down", "err", err)
		cancel()
		os.Exit(1)
	}
}
