// Package logging centralizes the zerolog setup shared by every command in
// this module, so solver, commander-serve, and commander-play all log in
// the same console format.
package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs a console-writing zerolog logger as the package-global
// logger, at debug level when debug is true and info level otherwise.
func Setup(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
}
