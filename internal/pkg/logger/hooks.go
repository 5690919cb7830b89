package logger

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Hook получает запись вместе с её полями, в отличие от zap.Hooks.
type Hook func(entry zapcore.Entry, fields []zapcore.Field) error

// ErrorKeys are the field names treated as the error cause of an entry.
var ErrorKeys = []string{"error", "err"}

// hookCore отдаёт хукам записи, которые вложенное ядро решило писать. Само ядро регистрируется в Check.
type hookCore struct {
	zapcore.Core
	fields []zapcore.Field
	hooks  []Hook
}

func wrapHooks(hooks ...Hook) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		if len(hooks) == 0 {
			return core
		}
		return &hookCore{Core: core, hooks: hooks}
	})
}

func (c *hookCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &hookCore{Core: c.Core.With(fields), fields: merged, hooks: c.hooks}
}

func (c *hookCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if downstream := c.Core.Check(entry, ce); downstream != nil {
		return downstream.AddCore(entry, c)
	}
	return ce
}

func (c *hookCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	var err error
	all := fields
	if len(c.fields) > 0 {
		all = append(append(make([]zapcore.Field, 0, len(c.fields)+len(fields)), c.fields...), fields...)
	}
	for _, hook := range c.hooks {
		err = errors.Join(err, hook(entry, all))
	}
	return err
}

// ErrorText returns the text of the first error field, unwrapping the map slog-zap makes of error attributes.
func ErrorText(fields []zapcore.Field) (string, bool) {
	for _, key := range ErrorKeys {
		for _, f := range fields {
			if f.Key == key {
				return fieldText(f), true
			}
		}
	}
	return "", false
}

func fieldText(f zapcore.Field) string {
	switch v := f.Interface.(type) {
	case error:
		return v.Error()
	case map[string]any:
		if msg, ok := v["error"]; ok {
			return fmt.Sprint(msg)
		}
	case fmt.Stringer:
		return v.String()
	}
	enc := zapcore.NewMapObjectEncoder()
	f.AddTo(enc)
	return fmt.Sprint(enc.Fields[f.Key])
}
