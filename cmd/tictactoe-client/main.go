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

// main - joins the game served on the Unix socket named by the only argument.
// The game is played on stdin/stdout; logs go to stderr.
func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintf(stderr, "%v: usage: %s <socket-path>\n", apperror.ErrUsage, program(args))
		return exitUsage
	}

	conf, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: conf.SlogLevel()}))

	ctx, cancel := app.WithSignals(context.Background(), logger)
	defer cancel()

	if err = app.RunClient(ctx, logger, conf, args[1], stdin, stdout); err != nil {
		logger.Error("client failed", "error", err)
		return exitFailure
	}

	return 0
}

func program(args []string) string {
	if len(args) == 0 {
		return "tictactoe-client"
	}

	return args[0]
}
