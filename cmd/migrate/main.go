package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"concertdesk/internal/config"
	"concertdesk/internal/logging"
	"concertdesk/migrations"
)

const usage = "usage: migrate [up|down|version]"

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	logging.SetGlobalLogger(logging.New(logging.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	}))

	db, err := config.LoadDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("load database configuration")
	}

	dsn := db.URL
	switch os.Args[1] {
	case "up":
		if err := migrations.Up(dsn); err != nil {
			log.Fatal().Err(err).Msg("apply migrations")
		}
		log.Info().Msg("migrations applied")
	case "down":
		if err := migrations.Down(dsn); err != nil {
			log.Fatal().Err(err).Msg("roll back migrations")
		}
		log.Info().Msg("migrations rolled back")
	case "version":
		version, dirty, err := migrations.Version(dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("read schema version")
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}
