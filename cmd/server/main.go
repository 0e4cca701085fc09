// Package main is the entry point for the zabbid API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fredsystems/zabbid/internal/api"
	"github.com/fredsystems/zabbid/internal/api/handlers"
	"github.com/fredsystems/zabbid/internal/api/middleware"
	"github.com/fredsystems/zabbid/internal/authn"
	"github.com/fredsystems/zabbid/internal/broadcast"
	"github.com/fredsystems/zabbid/internal/config"
	"github.com/fredsystems/zabbid/internal/lifecycle"
	"github.com/fredsystems/zabbid/internal/persistence"
	"github.com/fredsystems/zabbid/internal/persistence/mysqlstore"
	"github.com/fredsystems/zabbid/internal/persistence/sqlitestore"
	"github.com/fredsystems/zabbid/internal/pkg/logger"
	"github.com/fredsystems/zabbid/internal/pkg/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dbBackend := flag.String("db-backend", "", "persistence backend: sqlite or mysql (default sqlite)")
	database := flag.String("database", "", "sqlite database file path")
	databaseURL := flag.String("database-url", "", "mysql DSN, e.g. user:pass@tcp(host:3306)/zabbid?parseTime=true")
	port := flag.Int("port", 0, "HTTP listen port")
	flag.Parse()

	if *dbBackend == "sqlite" && *databaseURL != "" {
		return fmt.Errorf("--database-url is not valid with --db-backend=sqlite")
	}
	if *dbBackend == "mysql" && *database != "" {
		return fmt.Errorf("--database is not valid with --db-backend=mysql")
	}

	v := viper.New()
	if *dbBackend != "" {
		v.Set("database.backend", *dbBackend)
	}
	if *database != "" {
		v.Set("database.sqlite_path", *database)
	}
	if *databaseURL != "" {
		v.Set("database.mysql_url", *databaseURL)
	}
	if *port != 0 {
		v.Set("server.port", *port)
	}

	cfg, err := config.LoadWithFlags(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting zabbid",
		zap.Int("port", cfg.Server.Port),
		zap.String("db_backend", cfg.Database.Backend),
	)

	store, err := openStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	hub := broadcast.New()
	engine := lifecycle.New(store, hub)

	jwtCfg := middleware.JWTConfig{
		SigningKey: []byte(cfg.Security.JWTSigningKey),
		Issuer:     "zabbid",
		ExpiresIn:  cfg.Session.Lifetime,
		Leeway:     time.Minute,
	}
	authSvc := authn.New(store, jwtCfg, cfg.Session.Lifetime, cfg.Security.BcryptCost)

	csvPool, err := worker.NewPool(worker.PoolConfig{Name: "csv-import", Size: cfg.Worker.CSVImportPoolSize})
	if err != nil {
		return fmt.Errorf("start csv worker pool: %w", err)
	}
	defer csvPool.Shutdown()

	srv := handlers.NewServer(handlers.ServerDeps{
		Store:   store,
		Engine:  engine,
		Authn:   authSvc,
		Hub:     hub,
		CSVPool: csvPool,
		Bidding: cfg.Bidding,
	})
	router := api.NewRouter(cfg, srv, authSvc)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Info("server started", zap.String("addr", httpSrv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

func openStore(dbCfg config.DatabaseConfig) (*persistence.Store, error) {
	switch dbCfg.Backend {
	case "mysql":
		return mysqlstore.Open(dbCfg.MySQLURL)
	default:
		return sqlitestore.Open(dbCfg.SQLitePath)
	}
}
