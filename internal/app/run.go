package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"payment-gateway/internal/common/logging"
	"payment-gateway/internal/config"
	"payment-gateway/internal/server"
)

// Run is the main entry point: it loads configuration, wires the
// application, serves until SIGINT/SIGTERM, and drains gracefully.
func Run() error {
	_ = godotenv.Load()

	logging.InitGlobalLogger()
	defer logging.MustSync()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logging.Error("Configuration validation failed", err)
		return err
	}

	app, err := New(cfg)
	if err != nil {
		logging.Error("Failed to initialize application", err)
		return err
	}

	router := mux.NewRouter()
	app.SetupRoutes(router)
	app.StartSweeps()

	srv := server.New(router, cfg.Port, cfg.TLSCert, cfg.TLSKey, app.Logger)
	serveErr := srv.Start()

	logging.Info("Admission layer started", logging.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		logging.Error("Server failed", err)
		return err
	case sig := <-quit:
		logging.Info("Shutting down", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		logging.Warn("Error during app shutdown", logging.String("error", err.Error()))
	}
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", err)
		return err
	}

	logging.Info("Server exited")
	return nil
}
