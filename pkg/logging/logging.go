// Package logging provides the structured logger the host CLI and server
// wire into the orchestrator's narrow pipeline.Logger seam.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/example/dataflow-engine/internal/pipeline"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	current atomic.Int32
	base    zerolog.Logger
)

func init() {
	SetOutput(os.Stderr)
	SetLevel(LevelInfo)
}

// SetOutput redirects the underlying zerolog console writer; tests use this
// to capture output instead of the real console.
func SetOutput(w io.Writer) {
	base = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: true}).
		With().Timestamp().Logger()
}

func SetLevel(l Level) {
	current.Store(int32(l))
}

func SetLevelFromString(value string) Level {
	level := LevelInfo
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		level = LevelDebug
	case "info":
		level = LevelInfo
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	default:
		if value != "" {
			base.Warn().Msgf("unknown log level '%s', defaulting to info", value)
		}
	}
	SetLevel(level)
	return level
}

func effectiveLevel() Level {
	return Level(current.Load())
}

func CurrentLevel() Level {
	return effectiveLevel()
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func Debugf(format string, args ...any) { logWithLevel(LevelDebug, format, args...) }
func Infof(format string, args ...any)  { logWithLevel(LevelInfo, format, args...) }
func Warnf(format string, args ...any)  { logWithLevel(LevelWarn, format, args...) }
func Errorf(format string, args ...any) { logWithLevel(LevelError, format, args...) }

func logWithLevel(level Level, format string, args ...any) {
	if level < effectiveLevel() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	switch level {
	case LevelDebug:
		base.Debug().Msg(msg)
	case LevelWarn:
		base.Warn().Msg(msg)
	case LevelError:
		base.Error().Msg(msg)
	default:
		base.Info().Msg(msg)
	}
}

// Logger adapts the package-level functions above to pipeline.Logger, so
// the orchestrator can depend on the narrow interface rather than this
// package's global state directly.
type Logger struct{}

// New returns a Logger bound to this package's shared zerolog instance.
func New() Logger { return Logger{} }

func (Logger) Debugf(format string, args ...any) { Debugf(format, args...) }
func (Logger) Infof(format string, args ...any)  { Infof(format, args...) }
func (Logger) Warnf(format string, args ...any)  { Warnf(format, args...) }
func (Logger) Errorf(format string, args ...any) { Errorf(format, args...) }

var _ pipeline.Logger = Logger{}
