package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// ZerologAdapter implements Logger on top of zerolog. Every event carries
// the component name it was created for.
type ZerologAdapter struct {
	logger    zerolog.Logger
	component string
}

func NewZerolog(writer io.Writer, level LogLevel) *ZerologAdapter {
	logger := zerolog.New(writer).
		Level(zerologLevel(level)).
		With().
		Timestamp().
		Logger()

	return &ZerologAdapter{logger: logger, component: "app"}
}

func NewConsoleLogger(level LogLevel) *ZerologAdapter {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout}
	return NewZerolog(consoleWriter, level)
}

// NewFileLogger writes JSON lines to writer, and to the console as well when
// tee is set.
func NewFileLogger(level LogLevel, writer io.Writer, tee bool) *ZerologAdapter {
	if tee {
		writer = zerolog.MultiLevelWriter(writer, zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return NewZerolog(writer, level)
}

// Nop returns a logger that discards everything.
func Nop() *ZerologAdapter {
	return &ZerologAdapter{logger: zerolog.Nop(), component: "nop"}
}

// With returns a copy of the logger tagged with another component name.
func (z *ZerologAdapter) With(component string) *ZerologAdapter {
	return &ZerologAdapter{logger: z.logger, component: component}
}

func (z *ZerologAdapter) Debug(msg string, fields map[string]interface{}) {
	z.emit(z.logger.Debug(), msg, fields)
}

func (z *ZerologAdapter) Info(msg string, fields map[string]interface{}) {
	z.emit(z.logger.Info(), msg, fields)
}

func (z *ZerologAdapter) Warning(msg string, fields map[string]interface{}) {
	z.emit(z.logger.Warn(), msg, fields)
}

func (z *ZerologAdapter) Error(msg string, err error, fields map[string]interface{}) {
	z.emit(z.logger.Error().Err(err), msg, fields)
}

func (z *ZerologAdapter) emit(event *zerolog.Event, msg string, fields map[string]interface{}) {
	event = event.Str("component", z.component)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

func zerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}
