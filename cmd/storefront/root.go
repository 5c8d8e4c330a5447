package main

import (
	"context"
	"fmt"

	"github.com/SanteonNL/storefront/cmd/storefront/auth"
	"github.com/SanteonNL/storefront/cmd/storefront/config"
	"github.com/SanteonNL/storefront/cmd/storefront/datasource"
	"github.com/SanteonNL/storefront/cmd/storefront/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "dev"

type options struct {
	envFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "storefront",
		Short:        "Storefront REST API",
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "env file loaded before reading the environment")
	cmd.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "l", "",
		"set the logging level (can be one of: debug, info, warn, error); overrides LOG_LEVEL")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))

	return cmd
}

// app is what every subcommand starts from.
type app struct {
	cfg    *config.Config
	output *logging.Output
	log    zerolog.Logger
	ds     *datasource.DataSource
}

func setup(ctx context.Context, opts *options) (*app, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	output, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Pretty: !cfg.IsProduction(),
		Dir:    cfg.LogDir,
	})
	if err != nil {
		return nil, err
	}
	log := output.Logger()
	if path := output.Path(); path != "" {
		log.Info().Str("path", path).Msg("Logging to file")
	}

	db, err := datasource.Connect(ctx, datasource.Options{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to the database")
		output.Close()
		return nil, err
	}

	return &app{
		cfg:    cfg,
		output: output,
		log:    log,
		ds:     datasource.New(db, log),
	}, nil
}

func (a *app) Close() {
	if err := a.ds.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close database")
	}
	a.output.Close()
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ds.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			return nil
		},
	}
}

func newSeedCmd(opts *options) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo catalog and users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if migrate {
				if err := a.ds.Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}
			if err := a.ds.Seed(cmd.Context(), auth.HashPassword); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the migrations before seeding")
	return cmd
}
