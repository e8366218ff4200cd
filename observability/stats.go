package observability

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xflux/stream"
)

var once sync.Once

// InitEngineStats registers process-wide gauges next to the per
// processor counters: goroutine count matters here because the
// ring-buffer processors spawn one delivery goroutine per subscriber.
func InitEngineStats(name string) {
	once.Do(func() {
		builder := &strings.Builder{}
		builder.WriteString("xflux/engine")
		builder.Write([]byte("/"))
		if len(strings.TrimSpace(name)) > 0 {
			builder.WriteString(name)
		} else {
			builder.WriteString("default")
		}
		meter := otel.Meter(
			builder.String(),
			metric.WithInstrumentationVersion(otelruntime.Version()),
		)
		lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
			"engine.core.goroutines",
			metric.WithDescription(`The application goroutines' info.`),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				gNum := runtime.NumGoroutine()
				ob.Observe(int64(gNum))
				return nil
			}),
		))
		lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
			"engine.core.processes",
			metric.WithDescription(`The application processes' info.`),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				procs := runtime.GOMAXPROCS(0)
				ob.Observe(int64(procs))
				return nil
			}),
		))
		_ = otelruntime.Start()
	})
}

// RegisterExecutorStats exposes the occupancy of one execution
// resource, the running delivery goroutines against the pool cap.
func RegisterExecutorStats(name string, executor stream.Executor) error {
	meter := otel.Meter("xflux/executor/" + name)
	_, err := meter.Int64ObservableUpDownCounter(
		"executor.running",
		metric.WithDescription("The number of running delivery goroutines."),
		metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
			ob.Observe(int64(executor.Running()))
			return nil
		}),
	)
	if err != nil {
		return err
	}
	_, err = meter.Int64ObservableUpDownCounter(
		"executor.capacity",
		metric.WithDescription("The max concurrency of the execution resource; negative means unbounded."),
		metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
			ob.Observe(int64(executor.MaxConcurrency()))
			return nil
		}),
	)
	return err
}
