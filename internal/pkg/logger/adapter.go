package logger

import (
	"log/slog"

	"balance_tracker/internal/app/port"
)

// slogAdapter реализует интерфейс port.Logger, используя глобальные функции пакета logger.
// Это позволяет передавать конкретную реализацию логгера в сервисы, ожидающие port.Logger.
type slogAdapter struct {
	component string
}

// NewSlogAdapter создает новый экземпляр slogAdapter.
// Непустой component добавляется к каждой записи атрибутом "component".
func NewSlogAdapter(component string) port.Logger {
	return &slogAdapter{component: component}
}

func (a *slogAdapter) with(args []any) []any {
	if a.component == "" {
		return args
	}
	return append([]any{"component", a.component}, args...)
}

// Info логирует информационное сообщение.
func (a *slogAdapter) Info(msg string, args ...any) {
	logAt(slog.LevelInfo, msg, a.with(args)...)
}

// Debug логирует отладочное сообщение.
func (a *slogAdapter) Debug(msg string, args ...any) {
	logAt(slog.LevelDebug, msg, a.with(args)...)
}

// Warn логирует предупреждающее сообщение.
func (a *slogAdapter) Warn(msg string, args ...any) {
	logAt(slog.LevelWarn, msg, a.with(args)...)
}

// Error логирует сообщение об ошибке.
func (a *slogAdapter) Error(msg string, args ...any) {
	logAt(slog.LevelError, msg, a.with(args)...)
}
