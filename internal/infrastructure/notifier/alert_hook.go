package notifier

import (
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"balance_tracker/internal/pkg/logger"

	"go.uber.org/zap/zapcore"
)

// MaxAlertLength keeps alerts under the Telegram message limit.
const MaxAlertLength = 4000

const alertTimeLayout = "2006-01-02 15:04:05"

// FormatAlert renders a log entry as a markdown alert. The error field, when present, follows the message on its
// own line. The body is cut so the whole text fits MaxAlertLength characters.
func FormatAlert(entry zapcore.Entry, fields []zapcore.Field) string {
	location := "unknown"
	if entry.Caller.Defined {
		location = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	build := func(message string) string {
		return fmt.Sprintf("🚨 *%s* 🚨\n%s\n\n`%s`\n```\n%s\n```",
			entry.Level.CapitalString(), entry.Time.Format(alertTimeLayout), location, message)
	}

	body := entry.Message
	if cause, ok := logger.ErrorText(fields); ok {
		body += "\n" + cause
	}
	text := build(body)
	if utf8.RuneCountInString(text) <= MaxAlertLength {
		return text
	}
	overhead := utf8.RuneCountInString(text) - utf8.RuneCountInString(body)
	keep := MaxAlertLength - overhead - len("...")
	if keep < 0 {
		keep = 0
	}
	runes := []rune(body)
	return build(string(runes[:keep]) + "...")
}

// AlertHook returns a logger hook that turns error-level entries into alerts.
func AlertHook(d *Dispatcher) logger.Hook {
	return func(entry zapcore.Entry, fields []zapcore.Field) error {
		if entry.Level < zapcore.ErrorLevel {
			return nil
		}
		d.TryAlert(FormatAlert(entry, fields))
		return nil
	}
}
