package main

import (
	"balance_tracker/internal/pkg/logger"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap/zapcore"
)

func setupSentry(dsn, environment string) error {
	opts := sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	}
	return sentry.Init(opts)
}

// sentryHook forwards error-level log entries to Sentry. The error field is appended to the message.
func sentryHook(entry zapcore.Entry, fields []zapcore.Field) error {
	if entry.Level < zapcore.ErrorLevel {
		return nil
	}
	e := sentry.NewEvent()
	e.Message = entry.Message
	e.Level = sentry.LevelError
	if cause, ok := logger.ErrorText(fields); ok {
		e.Message = entry.Message + ": " + cause
		e.Extra["error"] = cause
	}
	if entry.Caller.Defined {
		e.Extra["caller"] = entry.Caller.TrimmedPath()
	}
	sentry.CaptureEvent(e)
	return nil
}
