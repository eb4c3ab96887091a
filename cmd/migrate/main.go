package main

// Apply session store migrations:
//   go run ./cmd/migrate
// Roll back the most recent one:
//   go run ./cmd/migrate -down
// Show applied state:
//   go run ./cmd/migrate -status

import (
	"context"
	"flag"
	"os"

	"recruitment-backend/internal/shared/config"
	"recruitment-backend/internal/shared/storage/db"
	"recruitment-backend/internal/shared/telemetry"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration")
	status := flag.Bool("status", false, "print migration status and exit")
	flag.Parse()

	cfg := config.Load()
	telemetry.Configure(cfg.LogLevel, cfg.LogFormat)
	defer telemetry.Sync()
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err})
		telemetry.Sync()
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch {
	case *status:
		err = db.Status(ctx, sqlDB)
	case *down:
		err = db.RollbackLast(ctx, sqlDB)
	default:
		err = db.RunMigrations(ctx, sqlDB)
	}
	if err != nil {
		telemetry.Error("migrate.failed", map[string]any{"down": *down, "error": err})
		telemetry.Sync()
		_ = sqlDB.Close()
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"down": *down})
}
