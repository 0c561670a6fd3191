package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-socket/internal/config"
	"github.com/rocketscienceinc/tictactoe-socket/internal/entity"
	"github.com/rocketscienceinc/tictactoe-socket/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-socket/internal/presenter"
	"github.com/rocketscienceinc/tictactoe-socket/internal/repository"
	"github.com/rocketscienceinc/tictactoe-socket/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-socket/internal/session"
	"github.com/rocketscienceinc/tictactoe-socket/internal/transport/frame"
	"github.com/rocketscienceinc/tictactoe-socket/internal/transport/socket"
	"github.com/rocketscienceinc/tictactoe-socket/transport/rest"
)

// WithSignals - returns a context cancelled on SIGINT or SIGTERM.
func WithSignals(ctx context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigs)

		select {
		case sig := <-sigs:
			logger.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// RunServer - binds path, hosts one game and returns when it is over.
func RunServer(ctx context.Context, logger *slog.Logger, conf *config.Config, path string) error {
	log := logger.With("component", "server")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	metrics.Register()

	var results repository.ResultRepository

	options := session.Options{
		TurnTimeout:     conf.TurnTimeout,
		MaxInvalidMoves: conf.MaxInvalidMoves,
	}

	if addr := conf.Redis.GetRedisAddr(); addr != "" {
		redisStorage, err := storage.NewRedisStorage(ctx, addr)
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		results = repository.NewResultRepository(redisStorage)
		options.Archive = results
		log.Info("Archiving results", "redis", addr)
	}

	// run HTTP server
	if conf.HTTPPort != "" {
		go func() {
			log.Info("Starting HTTP server", "port", conf.HTTPPort)
			if err := rest.Start(ctx, conf.HTTPPort); err != nil {
				log.Error("HTTP server error", "error", err)
			}
		}()
	}

	listener, err := socket.Listen(path, limits(conf))
	if err != nil {
		return err
	}

	defer func() {
		if err = listener.Close(); err != nil {
			log.Error("could not close listener", "error", err)
		}
	}()

	log.Info("Waiting for players", "path", listener.Path())

	game := session.New(logger, options)
	for game.State().Status == entity.StatusWaiting {
		conn, err := listener.Accept(ctx)
		if err != nil {
			return err
		}

		if _, err = game.Join(ctx, conn); err != nil {
			log.Warn("player could not join", "addr", conn.RemoteAddr(), "error", err)
		}
	}

	outcome, err := game.Play(ctx)
	if err != nil {
		return fmt.Errorf("game %s failed: %w", game.ID(), err)
	}

	log.Info("Game over", "session_id", game.ID(), "winner", outcome.WinnerLabel(), "reason", outcome.Reason)

	if results != nil {
		scoreboard, err := results.Scoreboard(ctx)
		if err != nil {
			log.Warn("could not read scoreboard", "error", err)
			return nil
		}
		log.Info("Scoreboard", "x", scoreboard["x"], "o", scoreboard["o"], "tie", scoreboard["tie"])
	}

	return nil
}

// RunClient - connects to the server at path and plays through input and output.
func RunClient(ctx context.Context, logger *slog.Logger, conf *config.Config, path string, input io.Reader, output io.Writer) error {
	conn, err := socket.Dial(ctx, path, limits(conf))
	if err != nil {
		return err
	}

	if err = presenter.New(logger, conn, input, output).Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("game aborted: %w", err)
	}

	return nil
}

func limits(conf *config.Config) frame.Limits {
	return frame.Limits{MaxPayloadBytes: conf.MaxPayloadBytes}
}
