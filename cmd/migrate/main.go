package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-recurring-orders/internal/config"
	"github.com/ariefcatur/go-recurring-orders/internal/logx"
	"github.com/ariefcatur/go-recurring-orders/internal/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger, err := logx.New(cfg.ServiceName+"-migrate", cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	m, err := postgres.NewMigrator(cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("init migrations", zap.Error(err))
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			logger.Warn("close migrations", zap.NamedError("source", sourceErr), zap.NamedError("db", dbErr))
		}
	}()

	switch os.Args[1] {
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			logger.Fatal("migrate up", zap.Error(err))
		} else if err == migrate.ErrNoChange {
			logger.Info("no change: database is up to date")
		} else {
			logger.Info("migrations applied")
		}

	case "down":
		if err := m.Steps(-1); err != nil {
			logger.Fatal("roll back last migration", zap.Error(err))
		}
		logger.Info("rolled back last migration")

	case "goto":
		if len(os.Args) < 3 {
			logger.Fatal("goto needs a version number")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			logger.Fatal("invalid version", zap.Error(err))
		}
		if err := m.Migrate(uint(version)); err != nil && err != migrate.ErrNoChange {
			logger.Fatal("migrate to version", zap.Uint64("version", version), zap.Error(err))
		}
		logger.Info("at version", zap.Uint64("version", version))

	case "status":
		version, dirty, err := m.Version()
		if err == migrate.ErrNilVersion {
			logger.Info("no migrations applied yet")
			return
		}
		if err != nil {
			logger.Fatal("read version", zap.Error(err))
		}
		logger.Info("current version", zap.Uint("version", version), zap.Bool("dirty", dirty))

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("usage: migrate [command]")
	fmt.Println("commands:")
	fmt.Println("  up     - apply all pending migrations")
	fmt.Println("  down   - roll back the last migration")
	fmt.Println("  goto N - migrate to version N")
	fmt.Println("  status - print the current version")
}
