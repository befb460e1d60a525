package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/florakart/florakart/internal/server"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := godotenv.Load(".env"); err != nil {
		log.Warn().Msg("no .env file found, using process environment")
	}

	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}
