// Package main creates the first Admin operator for a fresh deployment,
// an explicit alternative to POST /auth/bootstrap for scripted setup.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/fredsystems/zabbid/internal/api/middleware"
	"github.com/fredsystems/zabbid/internal/authn"
	"github.com/fredsystems/zabbid/internal/config"
	"github.com/fredsystems/zabbid/internal/persistence"
	"github.com/fredsystems/zabbid/internal/persistence/mysqlstore"
	"github.com/fredsystems/zabbid/internal/persistence/sqlitestore"
	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
	"github.com/fredsystems/zabbid/internal/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	loginName := flag.String("login-name", "admin", "login name for the seeded operator")
	displayName := flag.String("display-name", "Administrator", "display name for the seeded operator")
	password := flag.String("password", "", "password for the seeded operator (required)")
	flag.Parse()

	if *password == "" {
		return fmt.Errorf("--password is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	store, err := openStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	authSvc := authn.New(store, middleware.JWTConfig{SigningKey: []byte(cfg.Security.JWTSigningKey)}, cfg.Session.Lifetime, cfg.Security.BcryptCost)

	ctx := context.Background()
	op, err := authSvc.Bootstrap(ctx, authn.BootstrapCredential, *loginName, *displayName, *password)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindAuthentication) {
			logger.Info("seed skipped: an operator already exists")
			return nil
		}
		return fmt.Errorf("bootstrap operator: %w", err)
	}

	logger.Info("seeded first operator",
		zap.String("operator_id", op.OperatorID),
		zap.String("login_name", op.LoginName),
	)
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
