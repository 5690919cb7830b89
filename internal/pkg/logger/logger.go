package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options описывает настройки глобального логгера.
type Options struct {
	Level       string // debug, info, warn, error
	File        string // дополнительный файл логов, пусто - только stdout
	Development bool
	Hooks       []Hook
}

var (
	mu           sync.RWMutex
	globalLogger *slog.Logger // один глобальный логгер поверх zap
	baseZap      *zap.Logger
	slogLevel    slog.Level
)

// ParseLevel переводит строковый уровень в slog.Level. Неизвестные значения дают INFO.
func ParseLevel(levelStr string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO", "":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l >= slog.LevelError:
		return zapcore.ErrorLevel
	case l >= slog.LevelWarn:
		return zapcore.WarnLevel
	case l >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// Init строит zap логгер по опциям и устанавливает его как бэкенд глобального slog.
// Возвращает zap логгер, чтобы вызывающий мог сделать Sync при завершении.
func Init(opts Options) (*zap.Logger, error) {
	level, ok := ParseLevel(opts.Level)

	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	cfg.OutputPaths = []string{"stdout"}
	if opts.File != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, opts.File)
	}

	zl, err := cfg.Build(wrapHooks(opts.Hooks...))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	mu.Lock()
	baseZap = zl
	slogLevel = level
	globalLogger = newSlog(zl, level)
	slog.SetDefault(globalLogger)
	mu.Unlock()

	if !ok {
		Warn("Invalid log level string, defaulting to INFO", "input", opts.Level)
	}
	return zl, nil
}

// AttachHooks добавляет хуки к уже инициализированному логгеру.
// Нужен, когда получатель хука (например, Telegram) создаётся после логгера.
func AttachHooks(hooks ...Hook) {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	baseZap = baseZap.WithOptions(wrapHooks(hooks...))
	globalLogger = newSlog(baseZap, slogLevel)
	slog.SetDefault(globalLogger)
}

// Zap возвращает текущий zap логгер вместе с подключёнными хуками.
func Zap() *zap.Logger {
	ensureInitialized()
	mu.RLock()
	defer mu.RUnlock()
	return baseZap
}

func newSlog(zl *zap.Logger, level slog.Level) *slog.Logger {
	handler := slogzap.Option{
		Level:     level,
		Logger:    zl,
		AddSource: true,
	}.NewZapHandler()
	return slog.New(handler)
}

// ensureInitialized проверяет, инициализирован ли логгер.
func ensureInitialized() {
	mu.RLock()
	ready := globalLogger != nil
	mu.RUnlock()
	if ready {
		return
	}
	if _, err := Init(Options{Level: "INFO"}); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
}

func current() *slog.Logger {
	ensureInitialized()
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// logAt пишет запись с PC кода, вызвавшего экспортируемую обёртку, а не самой обёртки.
func logAt(level slog.Level, msg string, args ...any) {
	l := current()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}

// Debug logs a message at DebugLevel.
func Debug(msg string, args ...any) {
	logAt(slog.LevelDebug, msg, args...)
}

// Info logs a message at InfoLevel.
func Info(msg string, args ...any) {
	logAt(slog.LevelInfo, msg, args...)
}

// Warn logs a message at WarnLevel.
func Warn(msg string, args ...any) {
	logAt(slog.LevelWarn, msg, args...)
}

// Error logs a message at ErrorLevel.
func Error(msg string, args ...any) {
	logAt(slog.LevelError, msg, args...)
}

// Fatal logs a message at ErrorLevel then exits.
func Fatal(msg string, args ...any) {
	// Логируем всегда перед выходом, т.к. это Fatal
	logAt(slog.LevelError, msg, args...)
	mu.RLock()
	if baseZap != nil {
		_ = baseZap.Sync()
	}
	mu.RUnlock()
	os.Exit(1)
}
