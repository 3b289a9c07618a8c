package log

import (
	"log"
	"log/slog"
	"strings"
)

type logAdapter struct {
	slog *slog.Logger
}

// NewLogAdapter bridges a *log.Logger consumer (telebot middleware, net/http
// ErrorLog) onto the service slog.Logger.
func NewLogAdapter(logger *slog.Logger) *log.Logger {
	return log.New(&logAdapter{slog: logger}, "", 0)
}

func (a *logAdapter) Write(p []byte) (n int, err error) {
	a.slog.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
