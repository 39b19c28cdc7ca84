package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/newmanyatta/manyatta/internal/infrastructure/container"
	gormRepo "github.com/newmanyatta/manyatta/internal/infrastructure/persistence/gorm"
	"github.com/newmanyatta/manyatta/internal/infrastructure/persistence/migrations"
	"github.com/newmanyatta/manyatta/internal/infrastructure/persistence/seed"
)

func newSeedCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the bundled properties and albums into an empty catalog",
		Long:  "Seeding is skipped when the catalog already holds albums.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			catalog, err := container.NewCatalog(cfg, log)
			if err != nil {
				return err
			}
			defer catalog.Close()

			repo := gormRepo.NewCatalogRepository(catalog.DB)
			if err := seed.Catalog(cmd.Context(), repo, log); err != nil {
				return err
			}

			count, err := repo.CountAlbums(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog holds %d albums\n", count)
			return nil
		},
	}
}

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL catalog schema",
		Long:  "SQLite catalogs are migrated automatically on start and need none of this.",
	}

	run := func(fn func(cmd *cobra.Command, m *migrations.Migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if cfg.Database.Driver != "postgres" {
				return fmt.Errorf("database.driver is %q, migrations apply to postgres only", cfg.Database.Driver)
			}

			db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
				Logger: gormlogger.Default.LogMode(gormlogger.Silent),
			})
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			m, err := migrations.New(sqlDB, cfg.Database.Database, log)
			if err != nil {
				return err
			}
			return fn(cmd, m, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: run(func(cmd *cobra.Command, m *migrations.Migrator, _ []string) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: run(func(cmd *cobra.Command, m *migrations.Migrator, _ []string) error {
				if err := m.Down(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: run(func(cmd *cobra.Command, m *migrations.Migrator, _ []string) error {
				return printVersion(cmd, m)
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Mark a version as applied after a failed migration",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(cmd *cobra.Command, m *migrations.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("version must be a number: %w", err)
				}
				if err := m.Force(v); err != nil {
					return err
				}
				return printVersion(cmd, m)
			}),
		},
	)
	return cmd
}

func printVersion(cmd *cobra.Command, m *migrations.Migrator) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", v, state)
	return nil
}
