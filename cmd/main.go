package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"WalletLedger/internal/config"
	"WalletLedger/internal/handler"
	"WalletLedger/internal/logger"
	"WalletLedger/internal/repository"
	"WalletLedger/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer appLogger.Sync()

	store, closeStore := openStore(cfg, appLogger)
	defer closeStore()

	// Initializing the service
	ledgerService := service.NewLedgerService(store, service.Options{
		Workers:      cfg.Workers,
		QueueSize:    cfg.QueueSize,
		HistoryLimit: cfg.HistoryLimit,
		Logger:       appLogger.With("component", "ledger"),
	})
	defer ledgerService.Shutdown()

	// Setting up routes
	mux := http.NewServeMux()
	handler.NewWalletHandler(ledgerService, appLogger.With("component", "http")).Routes(mux)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		appLogger.Info("server started", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
	}
	appLogger.Info("server exiting")
}

// openStore connects to Postgres when DB_URL is set and falls back to the
// in-memory store otherwise.
func openStore(cfg config.Config, appLogger *logger.Logger) (repository.Store, func()) {
	if cfg.DBURL == "" {
		appLogger.Warn("DB_URL is not set, using in-memory store")
		return repository.NewMemoryRepository(), func() {}
	}

	db, err := sql.Open("postgres", cfg.DBURL)
	if err != nil {
		appLogger.Fatal("database connection failed", "error", err)
	}

	// Configuring the Connection pool
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnLifetime)

	if err := db.Ping(); err != nil {
		appLogger.Fatal("database ping failed", "error", err)
	}

	repo := repository.NewPostgresRepository(db)
	if err := repo.RunMigrations(context.Background(), cfg.MigrationsPath); err != nil {
		appLogger.Fatal("failed to run migrations", "error", err)
	}
	appLogger.Info("connected to postgres", "maxOpenConns", cfg.DBMaxOpenConns)

	return repo, func() { db.Close() }
}
