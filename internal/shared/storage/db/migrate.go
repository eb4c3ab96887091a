package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"

	"recruitment-backend/internal/shared/telemetry"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsDir = "migrations"

// gooseLogger routes goose output through the structured logger.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	telemetry.Info("migrate.goose", map[string]any{
		"detail": strings.TrimSpace(fmt.Sprintf(format, v...)),
	})
}

func (gooseLogger) Fatalf(format string, v ...any) {
	// Logged only; the caller decides whether to exit.
	telemetry.Error("migrate.goose", map[string]any{
		"detail": strings.TrimSpace(fmt.Sprintf(format, v...)),
	})
}

func prepare() error {
	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(gooseLogger{})
	return goose.SetDialect("postgres")
}

// RunMigrations applies pending migrations. A nil database is a no-op.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return nil
	}
	if err := prepare(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, database, migrationsDir); err != nil {
		return err
	}
	return logVersion(ctx, database, "migrate.up")
}

// RollbackLast reverts the most recent migration.
func RollbackLast(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return nil
	}
	if err := prepare(); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, database, migrationsDir); err != nil {
		return err
	}
	return logVersion(ctx, database, "migrate.down")
}

// Status logs the applied state of every embedded migration.
func Status(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return nil
	}
	if err := prepare(); err != nil {
		return err
	}
	return goose.StatusContext(ctx, database, migrationsDir)
}

func logVersion(ctx context.Context, database *sql.DB, msg string) error {
	version, err := goose.GetDBVersionContext(ctx, database)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	telemetry.Info(msg, map[string]any{"version": version})
	return nil
}
