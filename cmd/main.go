package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "mltm/docs"
	"mltm/internal/handlers"
	"mltm/internal/logger"
	"mltm/internal/repository"
	"mltm/internal/repository/db"
	"mltm/internal/server"
	"mltm/internal/service"

	"github.com/spf13/viper"
)

// @title           MLTM API
// @version         1.0
// @description     Machine status interval tracking: heartbeat ingestion, liveness watchdog and uptime reporting.

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// init logger
	log := logger.Get(logger.InfoLevel)

	// load config.yml
	if err := loadConfig(); err != nil {
		log.Fatalw("error reading config", "err", err)
	}

	// open DB
	database, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := database.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(database)
	services := service.NewService(repos, log, serviceOptions())
	apiHandler := handlers.NewHandler(services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// single-consumer drain loop for queued heartbeats
	go services.Ingest.Run(ctx)

	// boot sweep + inactivity watchdog
	if err := services.Watchdog.Start(ctx); err != nil {
		log.Fatalw("failed to start watchdog", "err", err)
	}

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, services, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

func serviceOptions() service.Options {
	return service.Options{
		WatchdogTick:     viper.GetDuration("watchdog.tick"),
		InactivityWindow: viper.GetDuration("watchdog.inactivity"),
		BootThreshold:    viper.GetDuration("watchdog.boot_threshold"),
		QueueMaxPending:  viper.GetInt("queue.max_pending"),
		SigningKey:       viper.GetString("auth.signing_key"),
		TokenTTL:         viper.GetDuration("auth.token_ttl"),
	}
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "mltm.db")
		dbPath = "mltm.db"
	}
	return db.InitDB(dbPath)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, services *service.Service, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()
	if err := services.Watchdog.Stop(); err != nil {
		log.Warnw("watchdog shutdown failed", "err", err)
	}

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
