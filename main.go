package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/classpoll/cliparse"
	"github.com/danielhkuo/classpoll/clock"
	"github.com/danielhkuo/classpoll/db"
	"github.com/danielhkuo/classpoll/hub"
	"github.com/danielhkuo/classpoll/middleware"
	"github.com/danielhkuo/classpoll/poll"
	"github.com/danielhkuo/classpoll/router"
	"github.com/danielhkuo/classpoll/store"
	"github.com/danielhkuo/classpoll/store/mongostore"
)

// openStore connects to the configured backend and prepares its schema.
func openStore(ctx context.Context, cfg cliparse.Config) (store.Store, error) {
	if cfg.DatabaseType == cliparse.DatabaseMongo {
		ms, err := mongostore.Connect(ctx, cfg.DatabaseURL, mongostore.DatabaseFromURI(cfg.DatabaseURL))
		if err != nil {
			return nil, err
		}
		return ms, nil
	}

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.CreateSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("schema creation failed: %w", err)
	}
	return store.NewSQLStore(conn), nil
}

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the store
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	st, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		slog.Error("database connection failed", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("Database ready", "type", cfg.DatabaseType)

	// Core services
	clk := clock.Real{}
	coord := poll.NewCoordinator(st, st, clk)
	defer coord.Close()
	roster := poll.NewRoster(st, clk)

	liveHub := hub.New(coord, roster, clk, cfg.AllowedOrigin)
	go liveHub.Run()

	// Pick up a poll left running by a previous process
	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	err = coord.Resume(ctx)
	cancel()
	if err != nil {
		slog.Error("failed to resume active poll", "error", err)
		os.Exit(1)
	}

	// Create router
	mux := router.NewRouter(coord, roster, liveHub)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(cfg.AllowedOrigin)(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		liveHub.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "origin", cfg.AllowedOrigin)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
