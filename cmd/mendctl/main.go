package main

import (
	"fmt"
	"io"
	"log/slog"
	"mend/internal/client"
	"mend/internal/config"
	"mend/internal/logger"
	"mend/internal/repository"
	"mend/internal/service"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var Version = "dev"

// app holds the services the operator commands act on.
type app struct {
	db          *gorm.DB
	commissions service.CommissionService
	accounts    service.AccountService
}

func newApp(db *gorm.DB, log *slog.Logger) *app {
	recoveryRepo := repository.NewRecoveryRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)

	return &app{
		db:          db,
		commissions: service.NewCommissionService(commissionRepo),
		accounts: service.NewAccountService(
			db,
			repository.NewAccountLinkRepository(db),
			recoveryRepo,
			commissionRepo,
			repository.NewWebhookEventRepository(db),
			log,
		),
	}
}

func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := client.InitDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	return newApp(db, logger.New(cfg.Log, os.Stderr)), nil
}

func newRootCmd(load func() (*app, error), out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mendctl",
		Short:         "Operate the Mend commission ledger and account links",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.AddCommand(commissionsCmd(load))
	rootCmd.AddCommand(accountsCmd(load))

	return rootCmd
}

func main() {
	if err := newRootCmd(loadApp, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
