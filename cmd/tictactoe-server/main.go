package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	app "github.com/rocketscienceinc/tictactoe-socket/internal"
	"github.com/rocketscienceinc/tictactoe-socket/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-socket/internal/config"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

// main - hosts one game on the Unix socket named by the only argument.
func main() {
	os.Exit(run(os.Args, os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintf(stderr, "%v: usage: %s <socket-path>\n", apperror.ErrUsage, program(args))
		return exitUsage
	}

	conf, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	logger := initLogger(conf, stderr)

	ctx, cancel := app.WithSignals(context.Background(), logger)
	defer cancel()

	if err = app.RunServer(ctx, logger, conf, args[1]); err != nil {
		logger.Error("server failed", "error", err)
		return exitFailure
	}

	return 0
}

// initialize logger.
func initLogger(conf *config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: conf.SlogLevel()}))
}

func program(args []string) string {
	if len(args) == 0 {
		return "tictactoe-server"
	}

	return args[0]
}
