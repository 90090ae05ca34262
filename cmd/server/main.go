// @title           File Sharing API
// @version         1.0
// @description     Upload files and share read access with other registered users.
// @host            localhost:8080
// @schemes         http https
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fileshare/internal/api"
	"fileshare/internal/config"
	"fileshare/internal/database"
	"fileshare/internal/logging"
	"fileshare/internal/storage"
	"fileshare/internal/websocket"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	_ "fileshare/docs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbpool, err := pgxpool.New(ctx, cfg.DB.Source)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	if err := dbpool.Ping(ctx); err != nil {
		return err
	}
	logger.Info("connected to database")

	if err := database.Migrate(ctx, dbpool); err != nil {
		return err
	}

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	logger.Info("blob storage ready", "driver", cfg.Storage.Driver)

	wsHub := websocket.NewHub(logger)
	go wsHub.Run(ctx)

	server := api.NewServer(cfg, database.NewStore(dbpool), blobs, wsHub, logger)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: server.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
