// Command dogwalk runs the dog walking game server: REST API, static
// frontend, websocket state push, and the Postgres leaderboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/vkozyrev/dogwalk/api"
	"github.com/vkozyrev/dogwalk/game/app"
	"github.com/vkozyrev/dogwalk/game/config"
	"github.com/vkozyrev/dogwalk/game/model"
	"github.com/vkozyrev/dogwalk/storage/records"
	"github.com/vkozyrev/dogwalk/transport/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A .env file is optional; the environment wins either way.
	godotenv.Load()

	cmd := &cli.Command{
		Name:  "dogwalk",
		Usage: "multiplayer dog walking game server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config-file",
				Usage:    "path to the game config JSON",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "www-root",
				Usage:    "directory with the static frontend",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address",
				Value: ":8080",
			},
			&cli.Int64Flag{
				Name:  "tick-period",
				Usage: "simulation tick period in milliseconds; when omitted the tick endpoint drives time",
			},
			&cli.StringFlag{
				Name:  "state-file",
				Usage: "path for game state snapshots",
			},
			&cli.Int64Flag{
				Name:  "save-state-period",
				Usage: "snapshot period in milliseconds; requires state-file",
			},
			&cli.BoolFlag{
				Name:  "randomize-spawn-points",
				Usage: "spawn dogs at random road points",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "dogwalk:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	game, err := config.Load(cmd.String("config-file"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbURL := os.Getenv("GAME_DB_URL")
	if dbURL == "" {
		return errors.New("GAME_DB_URL environment variable is not set")
	}
	repo, err := records.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect records database: %w", err)
	}
	defer repo.Close()

	tickPeriod := time.Duration(cmd.Int64("tick-period")) * time.Millisecond

	gameApp := app.New(game, repo, app.Options{
		RandomizeSpawn: cmd.Bool("randomize-spawn-points"),
		StateFile:      cmd.String("state-file"),
		SavePeriod:     time.Duration(cmd.Int64("save-state-period")) * time.Millisecond,
		Logger:         logger,
	})
	if err := gameApp.Restore(); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}

	hub := websocket.NewHub(logger)
	go hub.Run()
	gameApp.SetStateListener(func(mapID model.MapID, doc app.StateDocument) {
		data, err := api.EncodeState(doc)
		if err != nil {
			logger.Error("encode state push", zap.Error(err))
			return
		}
		hub.Broadcast(string(mapID), data)
	})

	apiServer := api.NewServer(gameApp, logger, api.Options{
		AllowTick: tickPeriod == 0,
		WWWRoot:   cmd.String("www-root"),
	})

	handler := http.NewServeMux()
	handler.Handle("/ws", hub)
	handler.Handle("/", apiServer)

	var ticker *app.Ticker
	if tickPeriod > 0 {
		ticker = app.NewTicker(gameApp, tickPeriod)
		ticker.Start()
	}

	server := &http.Server{
		Addr:    cmd.String("addr"),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started",
			zap.String("addr", server.Addr),
			zap.Bool("realtime", tickPeriod > 0))
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			// The ticker must stop before Shutdown closes the executor.
			if ticker != nil {
				ticker.Stop()
			}
			gameApp.Shutdown()
			return fmt.Errorf("listen on %s: %w", server.Addr, err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if ticker != nil {
		ticker.Stop()
	}
	gameApp.Shutdown()

	logger.Info("server exited")
	return nil
}
