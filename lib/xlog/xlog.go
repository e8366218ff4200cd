package xlog

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xflux/lib/infra"
)

var _ XLogger = (*xLogger)(nil)

type xLogger struct {
	logger  atomic.Pointer[zap.Logger]
	level   zapcore.Level
	encoder LogEncoderType
	ws      zapcore.WriteSyncer
}

type XLoggerOption func(*xLogger)

func WithXLoggerLevel(lvl LogLevel) XLoggerOption {
	return func(l *xLogger) {
		l.level = lvl.zapLevel()
	}
}

func WithXLoggerEncoder(typ LogEncoderType) XLoggerOption {
	return func(l *xLogger) {
		l.encoder = typ
	}
}

func WithXLoggerWriteSyncer(ws zapcore.WriteSyncer) XLoggerOption {
	return func(l *xLogger) {
		l.ws = ws
	}
}

func NewXLogger(opts ...XLoggerOption) XLogger {
	l := &xLogger{
		level:   zapcore.InfoLevel,
		encoder: PlainText,
	}
	for _, o := range opts {
		if o != nil {
			o(l)
		}
	}
	if l.ws == nil {
		l.ws = defaultWriteSyncer()
	}
	config := zapcore.EncoderConfig{
		MessageKey:    "msg",
		LevelKey:      "lvl",
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		TimeKey:       "ts",
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		CallerKey:     coreKeyIgnored,
		FunctionKey:   coreKeyIgnored,
		NameKey:       "component",
		EncodeName:    zapcore.FullNameEncoder,
		StacktraceKey: coreKeyIgnored,
	}
	core := zapcore.NewCore(
		getEncoderByType(l.encoder)(config),
		l.ws,
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= l.level
		}),
	)
	l.logger.Store(zap.New(core))
	return l
}

func (l *xLogger) IncreaseLogLevel(level zapcore.Level) {
	logger := l.logger.Load().WithOptions(zap.IncreaseLevel(level))
	l.logger.Store(logger)
}

func (l *xLogger) Sync() error {
	return l.logger.Load().Sync()
}

func (l *xLogger) Named(name string) XLogger {
	named := &xLogger{
		level:   l.level,
		encoder: l.encoder,
		ws:      l.ws,
	}
	named.logger.Store(l.logger.Load().Named(name))
	return named
}

func (l *xLogger) Debug(msg string, fields ...zap.Field) {
	l.logger.Load().Debug(msg, fields...)
}

func (l *xLogger) Info(msg string, fields ...zap.Field) {
	l.logger.Load().Info(msg, fields...)
}

func (l *xLogger) Warn(msg string, fields ...zap.Field) {
	l.logger.Load().Warn(msg, fields...)
}

func (l *xLogger) Error(err error, msg string, fields ...zap.Field) {
	newFields := make([]zap.Field, 0, len(fields)+1)
	if err != nil {
		newFields = append(newFields, zap.String("error", err.Error()))
	}
	newFields = append(newFields, fields...)
	l.logger.Load().Error(msg, newFields...)
}

func (l *xLogger) ErrorStack(err error, msg string, fields ...zap.Field) {
	newFields := make([]zap.Field, 0, len(fields)+1)
	if es, ok := err.(infra.ErrorStack); ok && es != nil {
		newFields = append(newFields, zap.String("errorStack", fmt.Sprintf("%+v", es)))
	} else if err != nil {
		newFields = append(newFields, zap.String("error", err.Error()))
	}
	newFields = append(newFields, fields...)
	l.logger.Load().Error(msg, newFields...)
}

func (l *xLogger) Logf(lvl zapcore.Level, format string, args ...any) {
	l.logger.Load().Log(lvl, fmt.Sprintf(format, args...))
}
