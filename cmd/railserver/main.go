// Command railserver runs the rail-logistics game server: it loads map
// definitions, opens the sqlite store, wires the game registry and TCP
// server, and serves connections until an interrupt signal requests
// graceful shutdown. Flag/env handling follows
// wricardo-tesla-road-trip-game/main.go's flag.String/flag.Int style and
// the teacher's main.go's os.Getenv("PORT") fallback pattern.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ironrailgames/railserver/config"
	"github.com/ironrailgames/railserver/game"
	"github.com/ironrailgames/railserver/mapdata"
	"github.com/ironrailgames/railserver/server"
	"github.com/ironrailgames/railserver/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "railserver:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()

	var (
		addr     = flag.String("addr", envOr("RAILSERVER_ADDR", cfg.ServerAddr), "address to listen on")
		port     = flag.Int("port", cfg.ServerPort, "port to listen on")
		dbURI    = flag.String("db", envOr("RAILSERVER_DB", cfg.DBURI), "sqlite database path, or :memory:")
		mapsGlob = flag.String("maps", envOr("RAILSERVER_MAPS_GLOB", cfg.MapsDiscovery), "glob pattern for map YAML files")
		mapName  = flag.String("map", cfg.MapName, "name of the map to mark active")
		profile  = flag.String("profile", "development", "logging profile: development or production")
		logLevel = flag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()

	cfg.ServerAddr = *addr
	cfg.ServerPort = *port
	cfg.DBURI = *dbURI
	cfg.MapsDiscovery = *mapsGlob
	cfg.MapName = *mapName

	log, err := newLogger(*profile, *logLevel)
	if err != nil {
		return err
	}

	maps := mapdata.NewStore()
	if err := maps.Load(cfg.MapsDiscovery, cfg.MapName); err != nil {
		return fmt.Errorf("loading maps: %w", err)
	}

	st, err := store.Open(cfg.DBURI)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	games := game.NewRegistry(maps, cfg, st, st, log)
	srv := server.New(cfg, games, st, maps, log)
	if err := srv.Listen(); err != nil {
		return fmt.Errorf("listening: %w", err)
	}
	log.Info("listening", "addr", srv.Addr().String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		log.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

func newLogger(profile, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid -log-level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch profile {
	case "production":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	case "development":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		return nil, fmt.Errorf("invalid -profile %q: must be development or production", profile)
	}
	return slog.New(handler), nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
