// Command aegis is a terminal client for the Aegis lending pool on Cedra.
// It keeps the wallet connection, theme and the last 50 transactions on disk
// and can serve them over HTTP.
//
// Usage:
//
//	aegis setup [path]
//	aegis --config aegis.yaml connect
//	aegis --account 0x1 supply 2.5
//	aegis history
//	aegis serve
//
// Every flag can also be set through an AEGIS_* environment variable or a .env file.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vadiminshakov/aegis/config"
	"github.com/vadiminshakov/aegis/internal"
	"github.com/vadiminshakov/aegis/internal/setup"
)

func main() {
	cfg, args, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	if len(args) > 0 && args[0] == "setup" {
		path := setup.DefaultConfigPath
		if len(args) > 1 {
			path = args[1]
		}
		if _, err := setup.RunTUI(path); err != nil {
			log.Fatal(err)
		}
		return
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	client, err := internal.NewClient(cfg, logger)
	if err != nil {
		logger.Fatal("failed to start client", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runErr := run(ctx, client, args, os.Stdout)
	stop()

	if err := client.Close(); err != nil {
		logger.Error("failed to close client", zap.Error(err))
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+runErr.Error()))
		os.Exit(1)
	}
}
