package stream

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const StreamStatsName = "xflux/stream"

// streamStats instruments one processor. All recorders are nil-safe so
// processors built without WithStreamStats pay a single nil check.
type streamStats struct {
	publishedCount  metric.Int64Counter
	deliveredCount  metric.Int64Counter
	droppedCount    metric.Int64Counter
	evictedCount    metric.Int64Counter
	subscriberCount metric.Int64UpDownCounter
}

func (stats *streamStats) IncreasePublishedCount() {
	if stats == nil {
		return
	}
	stats.publishedCount.Add(context.Background(), 1)
}

func (stats *streamStats) RecordDeliveredCount(count int64) {
	if stats == nil {
		return
	}
	stats.deliveredCount.Add(context.Background(), count)
}

func (stats *streamStats) IncreaseDroppedCount() {
	if stats == nil {
		return
	}
	stats.droppedCount.Add(context.Background(), 1)
}

func (stats *streamStats) IncreaseEvictedCount() {
	if stats == nil {
		return
	}
	stats.evictedCount.Add(context.Background(), 1)
}

func (stats *streamStats) RecordSubscriberCount(delta int64) {
	if stats == nil {
		return
	}
	stats.subscriberCount.Add(context.Background(), delta)
}

func newStreamStats(name string) *streamStats {
	meterName := fmt.Sprintf("%s/%s", StreamStatsName, name)
	return &streamStats{
		publishedCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"stream.published.count",
				metric.WithDescription("The number of values pushed into the processor."),
			),
		),
		deliveredCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"stream.delivered.count",
				metric.WithDescription("The number of values handed to subscribers."),
			),
		),
		droppedCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"stream.dropped.count",
				metric.WithDescription("The number of values rejected or discarded."),
			),
		),
		evictedCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"stream.replay.evicted.count",
				metric.WithDescription("The number of history values evicted by the replay policy."),
			),
		),
		subscriberCount: lo.Must[metric.Int64UpDownCounter](otel.Meter(meterName).
			Int64UpDownCounter(
				"stream.subscriber.count",
				metric.WithDescription("The number of live subscribers."),
			),
		),
	}
}
