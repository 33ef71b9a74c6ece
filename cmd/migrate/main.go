// Package main applies, reverts and lists the embedded schema migrations.
//
//	migrate up      apply pending migrations
//	migrate down    revert the latest migration
//	migrate status  list migrations and when they were applied
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ivnmtz09/yonna-akademia/config"
	"github.com/ivnmtz09/yonna-akademia/internal/app"
	"github.com/ivnmtz09/yonna-akademia/internal/infrastructure/persistence/postgres"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate up|down|status")
	}
	flag.Parse()

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd string) error {
	switch cmd {
	case "up", "down", "status":
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	log := app.NewLogger(cfg).With(logger.Component("migrate"))
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL, 2, 0)
	if err != nil {
		return err
	}
	defer conn.Close()
	m := postgres.NewMigrator(conn)

	switch cmd {
	case "up":
		if err := m.Migrate(ctx); err != nil {
			return err
		}
		log.Info("schema is up to date")
	case "down":
		version, err := m.Rollback(ctx)
		if err != nil {
			return err
		}
		if version == 0 {
			log.Info("nothing to roll back")
		} else {
			log.Info("migration rolled back", logger.Int("version", version))
		}
	case "status":
		statuses, err := m.Status(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
		for _, s := range statuses {
			applied := "pending"
			if s.Applied {
				applied = s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", s.Version, s.Name, applied)
		}
		return w.Flush()
	}
	return nil
}
