package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nats-io/nats-server/v2/server"
)

const serviceName = "autopilot"

// InitLogger installs a JSON logger on stdout as the slog default and returns
// it. Every record carries the service name.
func InitLogger(level slog.Level) *slog.Logger {
	return initLogger(os.Stdout, level)
}

func initLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{AddSource: true, Level: level})
	logger := slog.New(handler).With("service", serviceName)
	slog.SetDefault(logger)
	return logger
}

// natsLogger routes nats-server output onto slog. Notices and traces are
// debug records; fatal lines are errors tagged fatal=true.
type natsLogger struct {
	logger *slog.Logger
}

// NewNATSServerLogger adapts logger, or slog.Default() when nil, for
// server.SetLogger.
func NewNATSServerLogger(logger *slog.Logger) server.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return natsLogger{logger: logger.With("component", "nats")}
}

func (l natsLogger) logf(level slog.Level, format string, v []any, attrs ...any) {
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}
	l.logger.Log(ctx, level, fmt.Sprintf(format, v...), attrs...)
}

func (l natsLogger) Noticef(format string, v ...any) { l.logf(slog.LevelDebug, format, v) }
func (l natsLogger) Warnf(format string, v ...any)   { l.logf(slog.LevelWarn, format, v) }
func (l natsLogger) Errorf(format string, v ...any)  { l.logf(slog.LevelError, format, v) }
func (l natsLogger) Fatalf(format string, v ...any)  { l.logf(slog.LevelError, format, v, "fatal", true) }
func (l natsLogger) Debugf(format string, v ...any)  { l.logf(slog.LevelDebug, format, v) }
func (l natsLogger) Tracef(format string, v ...any)  { l.logf(slog.LevelDebug, format, v, "trace", true) }
