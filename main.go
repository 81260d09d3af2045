package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/heist/config"
	"github.com/wfunc/heist/logger"
	"github.com/wfunc/heist/monitor"
	"github.com/wfunc/heist/persistence"
	"github.com/wfunc/heist/server"
)

func openDatabase(cfg config.DatabaseConfig) (persistence.Database, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "gorm":
		return persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "postgres":
		return persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "sqlite":
		return persistence.NewSQLite(cfg.SQLite.Path)
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize Database
	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Log.Infof("Database connection successful (%s).", cfg.Database.Driver)

	mon := monitor.NewMonitor("heist", nil)
	metricsServer := mon.StartServer(cfg.Server.MetricsAddress)

	// Initialize Game Server
	gameServer, err := server.NewGameServer(server.Options{
		HTTPAddress:   cfg.Server.HTTPAddress,
		RPCAddress:    cfg.Server.RPCAddress,
		HealthAddress: cfg.Server.HealthAddress,
		Settings:      cfg.RoomSettings(),
		Monitor:       mon,
	}, db)
	if err != nil {
		logger.Log.Fatalf("Failed to create server: %v", err)
	}

	errs := make(chan error, 1)
	go func() {
		logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
		errs <- gameServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Log.Infof("Received %s, shutting down", sig)
	case err := <-errs:
		if err != nil {
			logger.Log.Errorf("Server stopped: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Game server shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Metrics server shutdown: %v", err)
	}
}
