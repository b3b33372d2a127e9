package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/stockdesk/stockdesk/internal/app"
	"github.com/stockdesk/stockdesk/internal/platform/migration"
	"github.com/stockdesk/stockdesk/migrations"
)

const usage = "usage: migrate up | down | steps <n> | version | force <version>"

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	m, err := migration.New(migrations.FS, cfg.PGDSN, logger)
	if err != nil {
		logger.Error("init migrator", slog.Any("error", err))
		os.Exit(1)
	}

	code := run(m, os.Args[1:], logger)
	if err := m.Close(); err != nil {
		logger.Warn("close migrator", slog.Any("error", err))
	}
	os.Exit(code)
}

func run(m *migration.Migrator, args []string, logger *slog.Logger) int {
	var err error
	switch args[0] {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps", "force":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, usage)
			return 2
		}
		n, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			fmt.Fprintf(os.Stderr, "invalid number %q\n", args[1])
			return 2
		}
		if args[0] == "steps" {
			err = m.Steps(n)
		} else {
			err = m.Force(n)
		}
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil {
			err = verr
			break
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
	default:
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}
	if err != nil {
		logger.Error("migrate", slog.String("command", args[0]), slog.Any("error", err))
		return 1
	}
	return 0
}
