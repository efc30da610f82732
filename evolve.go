package dbevolve

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sqldef/dbevolve/database"
	"github.com/sqldef/dbevolve/schema"
)

type Options struct {
	// Interactive shows the plan and asks the Confirmer before applying it.
	Interactive bool
	// DryRun prints the plan without running it.
	DryRun bool
	// Migrator overrides the one selected from the database dialect.
	Migrator  schema.Migrator
	Confirmer Confirmer
	// Logger receives the plan output. StdoutLogger when nil.
	Logger database.Logger
	Config database.GeneratorConfig
	// Validate checks the plan before anything is shown or run, e.g. postgres.ValidateStatements.
	Validate func([]database.Statement) error
}

// Evolve migrates the database to the tables declared in registry.
func Evolve(ctx context.Context, db database.Database, registry *schema.Registry, options *Options) error {
	if options == nil {
		options = &Options{}
	}
	logger := options.Logger
	if logger == nil {
		logger = database.StdoutLogger{}
	}

	migrator := options.Migrator
	if migrator == nil {
		var err error
		if migrator, err = schema.MigratorForDialect(db.Dialect()); err != nil {
			return err
		}
	}

	statements, err := Plan(ctx, db, registry, migrator, options.Config)
	if err != nil {
		return err
	}
	if options.Validate != nil {
		if err := options.Validate(statements); err != nil {
			return fmt.Errorf("generated an invalid plan: %w", err)
		}
	}
	if len(statements) == 0 {
		if options.Interactive || options.DryRun {
			logger.Println("-- Your database is up to date --")
		}
		return nil
	}

	if options.DryRun {
		dryRun, err := database.NewDryRunDatabase(db)
		if err != nil {
			return err
		}
		// Closing would close db as well.
		defer dryRun.DB().Close()
		return database.RunStatements(ctx, dryRun, statements, logger)
	}

	if options.Interactive {
		confirmer := options.Confirmer
		if confirmer == nil {
			confirmer = NewTerminalConfirmer(os.Stdin, os.Stdout)
		}
		if err := confirmer.Confirm(ctx, statements); err != nil {
			return err
		}
	}

	if err := database.RunStatements(ctx, db, statements, logger); err != nil {
		return err
	}
	if options.Interactive {
		logger.Println("-- Your database has been migrated --")
	}
	return nil
}

// Plan introspects the database and returns the statements Evolve would run.
func Plan(ctx context.Context, db database.Database, registry *schema.Registry, migrator schema.Migrator, config database.GeneratorConfig) ([]database.Statement, error) {
	catalog, err := database.Introspect(ctx, db, config)
	if err != nil {
		return nil, err
	}
	changes, err := schema.GenerateChanges(catalog, registry, config)
	if err != nil {
		return nil, err
	}
	slog.Debug("Generated changes", "dialect", db.Dialect(), "count", len(changes))
	return schema.GenerateStatements(migrator, changes)
}

// ReadFile reads a file, or stdin when path is "-".
func ReadFile(path string) ([]byte, error) {
	if path != "-" {
		return os.ReadFile(path)
	}
	stat, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return nil, fmt.Errorf("stdin is not piped")
	}
	return io.ReadAll(os.Stdin)
}
