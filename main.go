package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gndm/ytGateway/internal/api"
	"github.com/gndm/ytGateway/internal/config"
	"github.com/gndm/ytGateway/internal/logger"
	"github.com/gndm/ytGateway/internal/web"
)

var log = logger.Get("Main")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.Emit(logger.FATAL, "%v\n", err)
		os.Exit(1)
	}
}

// run boots the gateway and blocks until ctx is cancelled or the server fails.
func run(ctx context.Context, args []string) error {
	gateway, err := setup(args)
	if err != nil {
		return err
	}
	return gateway.Run(ctx)
}

func setup(args []string) (*api.Gateway, error) {
	path, err := configPath(args)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.Log.SetMinStatus(level)

	res, err := api.NewResolver(cfg)
	if err != nil {
		return nil, err
	}

	var ui http.Handler
	if !cfg.DisableUI {
		ui = web.Handler(cfg.WebDev)
	}

	return api.NewGateway(cfg, res, ui), nil
}

// configPath returns the -config flag value, falling back to CONFIG_FILE.
func configPath(args []string) (string, error) {
	fs := flag.NewFlagSet("ytGateway", flag.ContinueOnError)
	path := fs.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("parsing flags: %w", err)
	}
	return *path, nil
}
