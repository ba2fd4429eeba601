package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"coderoom/internal/api"
	"coderoom/internal/config"
	"coderoom/internal/events"
	"coderoom/internal/routers"
	"coderoom/internal/session"
	"coderoom/internal/utils"
)

var (
	listenAndServe = func(srv *http.Server) error { return srv.ListenAndServe() }
	exitFunc       = defaultExit
	exit           = os.Exit
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		exitFunc(err)
	}
}

func defaultExit(err error) {
	log.Printf("coderoom: %v", err)
	exit(1)
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := utils.NewLogger(cfg.Env)
	defer logger.Sync()

	hub := session.NewHub(cfg.DefaultLanguage)
	handlers := api.NewHandlers(logger, cfg, hub, newPublisher(ctx, cfg, logger))
	defer handlers.Close()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           routers.New(logger, cfg, handlers),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("coderoom listening", "addr", srv.Addr, "env", cfg.Env)
		errCh <- listenAndServe(srv)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "rooms", hub.RoomCount())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// newPublisher returns a Redis publisher when REDIS_ADDR is set. An
// unreachable Redis only logs a warning: go-redis reconnects lazily.
func newPublisher(ctx context.Context, cfg *config.Config, logger *utils.Logger) events.Publisher {
	if cfg.RedisAddr == "" {
		return events.NewNopPublisher()
	}
	pub := events.NewRedisPublisher(cfg.RedisAddr, cfg.EventsChannel)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pub.Ping(pingCtx); err != nil {
		logger.Warn("redis unavailable, room events will be retried per publish", "addr", cfg.RedisAddr, "error", err)
	} else {
		logger.Info("publishing room events", "addr", cfg.RedisAddr, "channel", cfg.EventsChannel)
	}
	return pub
}
