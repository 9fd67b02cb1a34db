// Package admin holds the maintenance commands of landsphere-admin.
package admin

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"landsphere/server/config"
	"landsphere/server/internal/catalog"
	"landsphere/server/internal/database"
)

// env is what every command shares: configuration, logging and where to print.
type env struct {
	cfg    *config.Config
	logger *logrus.Logger
	out    io.Writer
}

// Commands returns the admin commands bound to cfg. Reports are written to out.
func Commands(cfg *config.Config, logger *logrus.Logger, out io.Writer) []subcommands.Command {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if out == nil {
		out = os.Stdout
	}
	e := &env{cfg: cfg, logger: logger, out: out}
	return []subcommands.Command{
		&importCatalogCmd{env: e},
		&seedListingsCmd{env: e},
		&summaryCmd{env: e},
	}
}

func (e *env) openDatabase() (*database.Database, error) {
	db, err := database.NewDatabase(e.cfg.Database.Path, e.logger)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (e *env) loadCatalog(ctx context.Context, db *database.Database) (*catalog.Catalog, error) {
	c, err := catalog.Load(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%w (run import-catalog first)", err)
	}
	return c, nil
}

func (e *env) fail(err error, msg string) subcommands.ExitStatus {
	e.logger.WithError(err).Error(msg)
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	return subcommands.ExitFailure
}
