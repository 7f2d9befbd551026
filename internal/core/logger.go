package core

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init initializes zap's global logger at the given level ("" means info).
// After calling this, we use zap.L() directly.
func Init(pretty bool, level string) error {
	var config zap.Config

	if pretty {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		config.Level = zap.NewAtomicLevelAt(parsed)
	}

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	zap.ReplaceGlobals(logger)
	return nil
}

// LogInvocation logs a finished invocation using zap's global logger
func LogInvocation(requestID string, coldStart bool, duration float64, err error) {
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.Bool("cold_start", coldStart),
		zap.Float64("duration_seconds", duration),
		zap.Bool("success", err == nil),
	}

	if err != nil {
		fields = append(fields, zap.Error(err))
		zap.L().Error("Invocation failed", fields...)
		return
	}

	zap.L().Info("Invocation completed successfully", fields...)
}

// LogHookFailure logs a plugin hook that failed; the invocation carries on.
func LogHookFailure(plugin string, phase string, err error) {
	zap.L().Warn("Plugin hook failed",
		zap.String("plugin", plugin),
		zap.String("phase", phase),
		zap.Error(err))
}

// LogPanicRecovery logs a recovered panic along with the component it came from
func LogPanicRecovery(component string, panicValue any) {
	zap.L().Error("Panic recovered",
		zap.String("component", component),
		zap.Any("panic_value", panicValue),
		zap.Stack("stack"))
}

// LogDeferredError runs fn and logs its error. Intended for defer statements
// where the error would otherwise be dropped.
func LogDeferredError(fn func() error) {
	if err := fn(); err != nil {
		zap.L().Error("Deferred error", zap.Error(err), zap.Stack("stack"))
	}
}
