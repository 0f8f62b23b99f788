// Package logging configures logrus for the commands.
package logging

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Setup sends logs to stderr with full timestamps at level. Unknown levels
// fall back to info.
func Setup(level string) {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

// Invocation logs the command line the way it was typed.
func Invocation(args []string) {
	log.Info(strings.Join(args, " "))
}
