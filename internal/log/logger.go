package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. "dev" gets the console writer;
// everything else emits plain JSON lines.
func Init(env string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if env == "dev" {
		cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(cw).With().Timestamp().Logger()
		return log.Logger
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	return log.Logger
}
