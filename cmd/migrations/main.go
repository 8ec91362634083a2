package main

import (
	"context"
	"database/sql"
	"os"

	_ "github.com/lib/pq"

	"github.com/vncsmyrnk/slotpoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/slotpoll/internal/config"
	"github.com/vncsmyrnk/slotpoll/internal/logging"
)

// migrations runs a single named migration, such as "create_polls.up", or
// every up migration when called with "all".
func main() {
	cfg, err := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if len(os.Args) < 2 {
		log.Fatal().Msg("a migration name is required")
	}
	migrationName := os.Args[1]

	db, err := sql.Open("postgres", cfg.Postgres.ConnString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open postgres")
	}
	defer db.Close()

	ctx := context.Background()
	if migrationName == "all" {
		if err := postgres.ApplyUpMigrations(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
		log.Info().Msg("all migrations executed successfully")
		return
	}

	content, err := postgres.MigrationFile(migrationName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read migration")
	}
	if _, err := db.ExecContext(ctx, string(content)); err != nil {
		log.Fatal().Err(err).Str("migration", migrationName).Msg("failed to execute migration")
	}
	log.Info().Str("migration", migrationName).Msg("migration file executed successfully")
}
