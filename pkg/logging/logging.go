// Package logging configures the global zerolog logger for the wschat
// commands.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Settings struct {
	Level  string
	Format string // text or json
	// File sends logs to a rotating file instead of stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Quiet discards logs when no file is set. The TUI uses it so log lines
	// never draw over the screen.
	Quiet bool
}

func DefaultSettings() Settings {
	return Settings{
		Level:      "info",
		Format:     "text",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Writer returns the destination for s and a closer for it.
func Writer(s Settings, stderr io.Writer) (io.Writer, io.Closer) {
	if s.File != "" {
		lj := &lumberjack.Logger{
			Filename:   s.File,
			MaxSize:    s.MaxSizeMB,
			MaxBackups: s.MaxBackups,
			MaxAge:     s.MaxAgeDays,
		}
		return lj, lj
	}
	if s.Quiet {
		return io.Discard, nopCloser{}
	}
	return stderr, nopCloser{}
}

// New builds a logger for s without touching global state.
func New(s Settings, stderr io.Writer) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if s.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(s.Level))
		if err != nil {
			return zerolog.Nop(), nil, errors.Wrapf(err, "invalid log level %q", s.Level)
		}
		level = l
	}

	w, closer := Writer(s, stderr)
	switch strings.ToLower(s.Format) {
	case "", "text":
		noColor := true
		if f, ok := w.(*os.File); ok {
			noColor = !isatty.IsTerminal(f.Fd())
		}
		w = zerolog.ConsoleWriter{Out: w, NoColor: noColor, TimeFormat: time.Kitchen}
	case "json":
	default:
		_ = closer.Close()
		return zerolog.Nop(), nil, errors.Errorf("invalid log format %q", s.Format)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), closer, nil
}

// Init installs the logger for s as the global log.Logger and sets the global
// level. The returned closer flushes file output.
func Init(s Settings) (io.Closer, error) {
	logger, closer, err := New(s, os.Stderr)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(logger.GetLevel())
	log.Logger = logger
	return closer, nil
}
