package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinic-scheduler/internal/db"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	dir := flag.String("dir", "migrations", "migrations directory")
	flag.Parse()

	_ = godotenv.Load()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	if err := db.MigrateUp(dsn, *dir); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	logger.Info().Str("dir", *dir).Msg("migrations applied")
}
