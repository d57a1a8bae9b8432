package logger

import (
	"fmt"

	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLoggerAdapter adapts zap.Logger to Temporal's log.Logger interface
type ZapLoggerAdapter struct {
	logger *zap.Logger
}

// NewZapLoggerAdapter creates a new adapter from zap.Logger
func NewZapLoggerAdapter(zapLogger *zap.Logger) *ZapLoggerAdapter {
	return &ZapLoggerAdapter{
		logger: zapLogger.WithOptions(zap.AddCallerSkip(1)),
	}
}

func (z *ZapLoggerAdapter) Debug(msg string, keyvals ...interface{}) {
	z.logger.Debug(msg, toFields(keyvals)...)
}

func (z *ZapLoggerAdapter) Info(msg string, keyvals ...interface{}) {
	z.logger.Info(msg, toFields(keyvals)...)
}

func (z *ZapLoggerAdapter) Warn(msg string, keyvals ...interface{}) {
	z.logger.Warn(msg, toFields(keyvals)...)
}

func (z *ZapLoggerAdapter) Error(msg string, keyvals ...interface{}) {
	z.logger.Error(msg, toFields(keyvals)...)
}

// With creates a new logger with additional key-value pairs
func (z *ZapLoggerAdapter) With(keyvals ...interface{}) log.Logger {
	return &ZapLoggerAdapter{
		logger: z.logger.With(toFields(keyvals)...),
	}
}

// toFields converts Temporal key/value pairs to zap fields. zap.Field values
// are passed through as is, so callers may mix both styles.
func toFields(keyvals []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals); i++ {
		switch kv := keyvals[i].(type) {
		case zapcore.Field:
			fields = append(fields, kv)
		case string:
			if i+1 == len(keyvals) {
				fields = append(fields, zap.Any("!BADKEY", kv))
				continue
			}
			fields = append(fields, zap.Any(kv, keyvals[i+1]))
			i++
		default:
			fields = append(fields, zap.Any(fmt.Sprintf("!BADKEY%d", i), kv))
		}
	}
	return fields
}

var _ log.Logger = (*ZapLoggerAdapter)(nil)
var _ log.WithLogger = (*ZapLoggerAdapter)(nil)
