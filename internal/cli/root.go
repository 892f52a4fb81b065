// Package cli implements tranqctl, the operator command line.
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"tranquility/internal/platform/config"
	"tranquility/internal/platform/database"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Driver string
	URL    string
}

// NewRootCommand creates the tranqctl root command. Flags override the
// database settings from the environment and config file.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "tranqctl",
		Short:         "Operate a tranquility database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver (postgres|pgx|sqlite3)")
	cmd.PersistentFlags().StringVar(&opts.URL, "database-url", "", "database connection string")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	return cmd
}

func (o *RootOptions) databaseConfig() (config.DatabaseConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	db := cfg.Database
	if o.Driver != "" {
		db.Driver = o.Driver
	}
	if o.URL != "" {
		db.URL = o.URL
	}
	return db, nil
}

func (o *RootOptions) open(ctx context.Context) (*sql.DB, config.DatabaseConfig, error) {
	cfg, err := o.databaseConfig()
	if err != nil {
		return nil, cfg, err
	}
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("connect: %w", err)
	}
	return db, cfg, nil
}
