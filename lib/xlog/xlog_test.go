package xlog

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xflux/lib/infra"
)

type memWriteSyncer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (m *memWriteSyncer) Write(p []byte) (int, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.buf.Write(p)
}

func (m *memWriteSyncer) Sync() error { return nil }

func (m *memWriteSyncer) String() string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.buf.String()
}

func TestXLoggerLevels(t *testing.T) {
	ws := &memWriteSyncer{}
	logger := NewXLogger(
		WithXLoggerLevel(LogLevelInfo),
		WithXLoggerEncoder(JSON),
		WithXLoggerWriteSyncer(ws),
	)
	logger.Debug("invisible")
	logger.Info("hello", zap.String("k", "v"))
	logger.Warn("careful")
	logger.Error(errors.New("boom"), "failed")
	_ = logger.Sync()

	out := ws.String()
	require.NotContains(t, out, "invisible")
	require.Contains(t, out, "hello")
	require.Contains(t, out, "careful")
	require.Contains(t, out, "boom")
}

func TestXLoggerNamed(t *testing.T) {
	ws := &memWriteSyncer{}
	logger := NewXLogger(
		WithXLoggerEncoder(JSON),
		WithXLoggerWriteSyncer(ws),
	).Named("Sub")
	logger.Info("named entry")
	require.Contains(t, ws.String(), "Sub")
}

func TestXLoggerErrorStack(t *testing.T) {
	ws := &memWriteSyncer{}
	logger := NewXLogger(
		WithXLoggerEncoder(JSON),
		WithXLoggerWriteSyncer(ws),
	)
	logger.ErrorStack(infra.NewErrorStack("stacked"), "with frames")
	require.Contains(t, ws.String(), "errorStack")
	require.Contains(t, ws.String(), "stacked")
}

func TestXLoggerIncreaseLogLevel(t *testing.T) {
	ws := &memWriteSyncer{}
	logger := NewXLogger(
		WithXLoggerLevel(LogLevelDebug),
		WithXLoggerEncoder(JSON),
		WithXLoggerWriteSyncer(ws),
	)
	logger.IncreaseLogLevel(zapcore.ErrorLevel)
	logger.Info("muted")
	require.NotContains(t, ws.String(), "muted")
}

func TestAntsXLogger(t *testing.T) {
	ws := &memWriteSyncer{}
	logger := NewXLogger(
		WithXLoggerLevel(LogLevelDebug),
		WithXLoggerEncoder(JSON),
		WithXLoggerWriteSyncer(ws),
	)
	antsLogger := NewAntsXLogger(logger)
	antsLogger.Printf("worker %d exits", 3)
	require.Contains(t, ws.String(), "worker 3 exits")
}
