package main

import (
	"context"
	"fmt"

	"contactbook/backend/internal/config"
	"contactbook/backend/internal/database"
	"contactbook/backend/internal/seed"
	"contactbook/backend/pkg/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "contactbook [command]",
		SilenceUsage: true,
		Short:        "contact requests and confirmed contacts",
		Long:         `contactbook serves the contacts API and manages its database with the migrate, seed and contacts commands.`,
	}

	fs := cmd.PersistentFlags()
	fs.String("database-url", "", "database DSN, postgres://... or sqlite://<path>")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("policy", "", "default contact policy (accepted, mutual, bidirectional)")

	cmd.AddCommand(serveCmd(), migrateCmd(), seedCmd(), contactsCmd())
	return cmd
}

// loadConfig reads the configuration with the command's flags on top and
// sets up the process logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.InitLogger(cfg.LogLevel), nil
}

// withDB runs fn against a migrated database and closes it afterwards.
func withDB(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, log *logrus.Logger, db *gorm.DB) error) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.WithError(err).Warn("Failed to close database")
		}
	}()

	return fn(cmd.Context(), cfg, log, db)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "create or update the database schema",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(_ context.Context, _ *config.Config, log *logrus.Logger, _ *gorm.DB) error {
				log.Info("Database migrated")
				return nil
			})
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "seed",
		Short:        "load the demo users and contact requests",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, _ *config.Config, log *logrus.Logger, db *gorm.DB) error {
				users, err := seed.Load(ctx, db)
				if err != nil {
					return err
				}
				for _, u := range users {
					log.WithField("id", u.ID).WithField("name", u.Name).Info("Seeded user")
				}
				return nil
			})
		},
	}
}
