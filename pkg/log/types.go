package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
)

var (
	Bool     = zap.Bool
	Int      = zap.Int
	String   = zap.String
	Strings  = zap.Strings
	Any      = zap.Any
	Err      = zap.Error
	Duration = zap.Duration
	Float64  = zap.Float64
	Int64    = zap.Int64
	Uint64   = zap.Uint64
	Stack    = zap.Stack
)

type (
	Level = zapcore.Level
	Field = zap.Field
)

// ParseLevel 解析日志级别字符串，无法识别时返回 InfoLevel
func ParseLevel(s string) Level {
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return InfoLevel
	}
	return lvl
}
