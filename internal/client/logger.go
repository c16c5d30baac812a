package client

import (
	"go.uber.org/zap"
)

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	sugar *zap.SugaredLogger
}

func newLeveledLogger(logger *zap.Logger) *leveledLogger {
	return &leveledLogger{sugar: logger.Sugar()}
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}
