package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/parkshare/internal/config"
	"github.com/iliyamo/parkshare/internal/database"
	"github.com/iliyamo/parkshare/internal/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "parkshare",
		Short: "Parking bay sharing for residential communities",
		Long: `parkshare lets residents publish the windows during which their
private parking bay is free and lets neighbours claim them, with at most
one active claim per bay at any time.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

// app is what every subcommand needs before it can do any work.
type app struct {
	cfg config.Config
	log *zap.Logger
	db  *sql.DB
}

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "parkshare")
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return &app{cfg: cfg, log: log, db: db}, nil
}

func (a *app) close() {
	_ = a.db.Close()
	_ = a.log.Sync()
}
