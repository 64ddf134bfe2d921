// Command guestctl is the planner's command-line companion to the RSVP API: bulk CSV
// imports, guest timelines, invite sends and a local JWT issuer for development.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
