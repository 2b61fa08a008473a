package auth

import (
	"fmt"
	"log/slog"
)

// SlogLogger adapts a *slog.Logger to Logger. Messages are formatted
// before being handed to slog.
type SlogLogger struct {
	l *slog.Logger
}

var _ Logger = (*SlogLogger)(nil)

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(format string, args ...any) {
	s.l.Debug(fmt.Sprintf(format, args...))
}

func (s *SlogLogger) Info(format string, args ...any) {
	s.l.Info(fmt.Sprintf(format, args...))
}

func (s *SlogLogger) Warn(format string, args ...any) {
	s.l.Warn(fmt.Sprintf(format, args...))
}

func (s *SlogLogger) Error(format string, args ...any) {
	s.l.Error(fmt.Sprintf(format, args...))
}

// With returns a child logger that always includes the given attributes
func (s *SlogLogger) With(args ...any) *SlogLogger {
	return &SlogLogger{l: s.l.With(args...)}
}
