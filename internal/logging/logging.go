package logging

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Setup configures the process-wide logrus logger. Unknown levels fall back
// to info.
func Setup(level, format string) {
	log.SetOutput(os.Stdout)
	parsed, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
	if strings.EqualFold(format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
