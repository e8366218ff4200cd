package xlog

import (
	"strings"

	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// FxXLogger adapts XLogger to the fx application event logger.
type FxXLogger struct {
	logger XLogger
}

func NewFxXLogger(logger XLogger) *FxXLogger {
	return &FxXLogger{logger: logger.Named("Fx")}
}

func (l *FxXLogger) LogEvent(event fxevent.Event) {
	if l == nil || l.logger == nil {
		return
	}

	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		l.logger.Debug("HOOK OnStart",
			zap.String("function", e.FunctionName),
			zap.String("caller", e.CallerName),
		)
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			l.logger.Error(e.Err, "HOOK OnStart failed",
				zap.String("function", e.FunctionName),
				zap.String("caller", e.CallerName),
			)
		} else {
			l.logger.Debug("HOOK OnStart successfully",
				zap.String("function", e.FunctionName),
				zap.String("caller", e.CallerName),
			)
		}
	case *fxevent.OnStopExecuting:
		l.logger.Debug("HOOK OnStop",
			zap.String("function", e.FunctionName),
			zap.String("caller", e.CallerName),
		)
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			l.logger.Error(e.Err, "HOOK OnStop failed",
				zap.String("function", e.FunctionName),
				zap.String("caller", e.CallerName),
			)
		} else {
			l.logger.Debug("HOOK OnStop successfully",
				zap.String("function", e.FunctionName),
				zap.String("caller", e.CallerName),
			)
		}
	case *fxevent.Provided:
		if e.Err != nil {
			l.logger.Error(e.Err, "PROVIDE ERROR",
				zap.String("constructor", e.ConstructorName),
			)
		} else {
			l.logger.Debug("PROVIDE",
				zap.String("constructor", e.ConstructorName),
				zap.String("types", strings.Join(e.OutputTypeNames, ",")),
			)
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			l.logger.Error(e.Err, "INVOKE ERROR",
				zap.String("function", e.FunctionName),
			)
		} else {
			l.logger.Debug("INVOKE",
				zap.String("function", e.FunctionName),
			)
		}
	case *fxevent.Started:
		if e.Err != nil {
			l.logger.Error(e.Err, "START ERROR")
		} else {
			l.logger.Debug("STARTED")
		}
	case *fxevent.Stopped:
		if e.Err != nil {
			l.logger.Error(e.Err, "STOP ERROR")
		} else {
			l.logger.Debug("STOPPED")
		}
	default:
	}
}
