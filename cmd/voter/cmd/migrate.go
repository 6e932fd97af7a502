package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"edu-voting/internal/config"
	"edu-voting/internal/storage/migrations"
	pgstore "edu-voting/internal/storage/postgres"
)

func newMigrateCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `migrate applies the embedded SQL migrations to the vote journal
(POSTGRES_DSN) and the tally history (CLICKHOUSE_DSN). Only the configured
databases are touched. Migrations are idempotent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := o.logger

			// node and contract settings are not needed here
			pgDSN := o.v.GetString(config.KeyPostgresDSN)
			chDSN := o.v.GetString(config.KeyClickhouseDSN)
			if pgDSN == "" && chDSN == "" {
				return errors.New("nothing to migrate: set POSTGRES_DSN and/or CLICKHOUSE_DSN")
			}

			if pgDSN != "" {
				pool, err := pgstore.NewPool(ctx, pgDSN, pgstore.WithConnectTimeout(dbConnectTimeout))
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
					return err
				}
				logger.Info("postgres migrations complete")
			}

			if chDSN != "" {
				conn, err := migrations.RunClickhouseMigrations(ctx, chDSN, logger)
				if err != nil {
					return err
				}
				defer conn.Close()
				logger.Info("clickhouse migrations complete")
			}

			pg, ch, err := migrations.Names()
			if err != nil {
				return err
			}
			logger.Debug("embedded migrations", zap.Strings("postgres", pg), zap.Strings("clickhouse", ch))
			return nil
		},
	}
}
