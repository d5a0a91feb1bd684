package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/hungtmh/online-auction-system-sub000/internal/infrastructure/config"
)

func main() {
	var (
		action = flag.String("action", "up", "Migration action: up, down, version")
		source = flag.String("source", "file://migrations", "Migration source URL")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	m, err := migrate.New(*source, cfg.Database.URL)
	if err != nil {
		slog.Error("failed to create migrator", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	switch *action {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		var version uint
		var dirty bool
		version, dirty, err = m.Version()
		if err == nil {
			slog.Info("current schema version", "version", version, "dirty", dirty)
		}
	default:
		slog.Error("unknown action", "action", *action)
		os.Exit(1)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		slog.Error("migration failed", "action", *action, "error", err)
		os.Exit(1)
	}
	slog.Info("migration complete", "action", *action)
}
