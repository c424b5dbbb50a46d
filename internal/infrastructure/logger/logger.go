package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log is the process-wide logger. It writes JSON to stdout until Init is called.
var Log = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init configures the global logger for env. "development" gets a console writer.
func Init(env string, level string) {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
		Log = zerolog.New(out).With().Timestamp().Caller().Logger()
	} else {
		Log = zerolog.New(out).With().Timestamp().Logger()
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	Log = Log.Level(lvl)
}

// SetOutput redirects the global logger, e.g. to silence tests.
func SetOutput(w io.Writer) {
	Log = Log.Output(w)
}

func Info() *zerolog.Event {
	return Log.Info()
}

func Error() *zerolog.Event {
	return Log.Error()
}

func Warn() *zerolog.Event {
	return Log.Warn()
}

func Debug() *zerolog.Event {
	return Log.Debug()
}

func Fatal() *zerolog.Event {
	return Log.Fatal()
}
