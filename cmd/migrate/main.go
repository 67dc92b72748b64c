// AngelaMos | 2026
// main.go

package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/carterperez-dev/oneclick-server/internal/core"
)

func main() {
	databaseURL := flag.String("database-url", "", "Postgres DSN (defaults to DATABASE_URL)")
	envFile := flag.String("env-file", ".env", "path to optional .env file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [flags] up|down|version\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load env file", "path", *envFile, "error", err)
	}

	if *databaseURL == "" {
		*databaseURL = os.Getenv("DATABASE_URL")
	}

	if err := run(*databaseURL, flag.Arg(0)); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func run(databaseURL, command string) error {
	if databaseURL == "" {
		return errors.New("database url is required")
	}

	migrator, err := core.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("migrator close error", "error", closeErr)
		}
	}()

	switch command {
	case "up", "":
		if err := migrator.Up(); err != nil {
			return err
		}
	case "down":
		if err := migrator.Down(); err != nil {
			return err
		}
	case "version":
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	slog.Info("schema version", "version", version, "dirty", dirty)

	return nil
}
