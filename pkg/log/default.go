package log

import (
	"context"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(NewLogger(WithDebug(true)))
}

// InitLogger 使用给定配置替换默认 logger
func InitLogger(opts ...Option) *Logger {
	l := NewLogger(opts...)
	defaultLogger.Store(l)
	return l
}

// Default 返回当前默认 logger
func Default() *Logger {
	return defaultLogger.Load()
}

func Debug(ctx context.Context, msg string, fields ...Field) {
	Default().Debug(ctx, msg, fields...)
}

func Info(ctx context.Context, msg string, fields ...Field) {
	Default().Info(ctx, msg, fields...)
}

func Warn(ctx context.Context, msg string, fields ...Field) {
	Default().Warn(ctx, msg, fields...)
}

func Error(ctx context.Context, msg string, fields ...Field) {
	Default().Error(ctx, msg, fields...)
}

// Sync 刷新默认 logger 的缓冲
func Sync() error {
	return Default().Sync()
}
