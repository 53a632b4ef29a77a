package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goalreminder/goal-reminder/internal/adapter/storage/postgres"
	"github.com/goalreminder/goal-reminder/internal/bootstrap"
	"github.com/goalreminder/goal-reminder/pkg/config"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(viper.New(), cfgFile)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("database.url is required")
			}

			log, err := newLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer log.Sync()

			cfg.Database.AutoMigrate = true
			db, err := bootstrap.OpenDatabase(cfg.Database, log)
			if err != nil {
				return err
			}
			defer postgres.Close(db)

			printf(cmd.OutOrStdout(), "users table is up to date\n")
			return nil
		},
	}
}
