package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds all domain-specific metrics for the application
type Registry struct {
	meter metric.Meter

	// Bidding metrics
	BidProcessingDuration metric.Float64Histogram
	BidAcceptedCounter    metric.Int64Counter
	BidRejectedCounter    metric.Int64Counter
	BidsPerSecond         metric.Float64ObservableGauge

	// Auction lifecycle metrics
	AutoExtendCounter     metric.Int64Counter
	AuctionClosedCounter  metric.Int64Counter
	ActiveAuctions        metric.Int64ObservableGauge
	CloserSweepDuration   metric.Float64Histogram

	// System metrics
	EventQueueDepth    metric.Int64ObservableGauge
	APIRequestDuration metric.Float64Histogram
	APIRequestCounter  metric.Int64Counter

	// State for observable metrics
	mu              sync.RWMutex
	activeAuctions  int64
	eventQueueDepth int64
	bidsProcessed   int64
	lastBidCount    int64
	lastBidTime     time.Time
}

// NewRegistry creates a new metrics registry with all domain metrics
func NewRegistry(meterName string) (*Registry, error) {
	meter := otel.Meter(meterName)
	r := &Registry{
		meter:       meter,
		lastBidTime: time.Now(),
	}

	if err := r.initBiddingMetrics(); err != nil {
		return nil, err
	}

	if err := r.initLifecycleMetrics(); err != nil {
		return nil, err
	}

	if err := r.initSystemMetrics(); err != nil {
		return nil, err
	}

	return r, nil
}

// initBiddingMetrics initializes bid path metrics
func (r *Registry) initBiddingMetrics() error {
	var err error

	r.BidProcessingDuration, err = r.meter.Float64Histogram(
		"auction.bid.processing_duration",
		metric.WithDescription("Duration of bid resolution in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 5, 10, 50, 100, 500, 1000),
	)
	if err != nil {
		return err
	}

	r.BidAcceptedCounter, err = r.meter.Int64Counter(
		"auction.bid.accepted_total",
		metric.WithDescription("Total number of accepted bids"),
	)
	if err != nil {
		return err
	}

	r.BidRejectedCounter, err = r.meter.Int64Counter(
		"auction.bid.rejected_total",
		metric.WithDescription("Total number of rejected bids"),
	)
	if err != nil {
		return err
	}

	r.BidsPerSecond, err = r.meter.Float64ObservableGauge(
		"auction.bid.throughput_per_second",
		metric.WithDescription("Current bid processing throughput per second"),
		metric.WithFloat64Callback(func(ctx context.Context, o metric.Float64Observer) error {
			r.mu.Lock()
			defer r.mu.Unlock()

			now := time.Now()
			elapsed := now.Sub(r.lastBidTime).Seconds()
			if elapsed > 0 {
				rate := float64(r.bidsProcessed-r.lastBidCount) / elapsed
				o.Observe(rate)
				r.lastBidCount = r.bidsProcessed
				r.lastBidTime = now
			}
			return nil
		}),
	)

	return err
}

// initLifecycleMetrics initializes auction lifecycle metrics
func (r *Registry) initLifecycleMetrics() error {
	var err error

	r.AutoExtendCounter, err = r.meter.Int64Counter(
		"auction.lifecycle.auto_extend_total",
		metric.WithDescription("Total number of deadline auto-extensions"),
	)
	if err != nil {
		return err
	}

	r.AuctionClosedCounter, err = r.meter.Int64Counter(
		"auction.lifecycle.closed_total",
		metric.WithDescription("Total number of closed auctions"),
	)
	if err != nil {
		return err
	}

	r.ActiveAuctions, err = r.meter.Int64ObservableGauge(
		"auction.lifecycle.active_total",
		metric.WithDescription("Number of currently active auctions"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.activeAuctions)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	r.CloserSweepDuration, err = r.meter.Float64Histogram(
		"auction.lifecycle.sweep_duration",
		metric.WithDescription("Duration of one closer sweep in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 50, 100, 500, 1000, 5000),
	)

	return err
}

// initSystemMetrics initializes system metrics
func (r *Registry) initSystemMetrics() error {
	var err error

	r.EventQueueDepth, err = r.meter.Int64ObservableGauge(
		"auction.events.queue_depth",
		metric.WithDescription("Current depth of the outbound event queue"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.eventQueueDepth)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	r.APIRequestDuration, err = r.meter.Float64Histogram(
		"auction.api.request_duration",
		metric.WithDescription("API request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return err
	}

	r.APIRequestCounter, err = r.meter.Int64Counter(
		"auction.api.request_total",
		metric.WithDescription("Total number of API requests"),
	)

	return err
}

// Helper methods for updating observable metric values

// SetActiveAuctions sets the active auction count
func (r *Registry) SetActiveAuctions(count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activeAuctions = count
}

// SetEventQueueDepth sets the outbound event queue depth
func (r *Registry) SetEventQueueDepth(depth int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eventQueueDepth = depth
}

// Recorder methods; the bidding service sees these through its
// MetricsCollector interface

// RecordBidAccepted records one accepted bid and its resolution latency
func (r *Registry) RecordBidAccepted(ctx context.Context, duration time.Duration) {
	r.BidProcessingDuration.Record(ctx, float64(duration.Microseconds())/1000.0)
	r.BidAcceptedCounter.Add(ctx, 1)

	r.mu.Lock()
	r.bidsProcessed++
	r.mu.Unlock()
}

// RecordBidRejected records one rejected bid with its rejection code
func (r *Registry) RecordBidRejected(ctx context.Context, code string) {
	r.BidRejectedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
	))
}

// RecordAutoExtend records one deadline extension
func (r *Registry) RecordAutoExtend(ctx context.Context) {
	r.AutoExtendCounter.Add(ctx, 1)
}

// RecordAuctionClosed records one auction close
func (r *Registry) RecordAuctionClosed(ctx context.Context, hasWinner bool) {
	r.AuctionClosedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("has_winner", hasWinner),
	))
}

// RecordCloserSweep records the duration of one closer pass
func (r *Registry) RecordCloserSweep(ctx context.Context, duration time.Duration, closed int) {
	r.CloserSweepDuration.Record(ctx, float64(duration.Microseconds())/1000.0, metric.WithAttributes(
		attribute.Int("closed", closed),
	))
}

// RecordAPIRequest records API request metrics
func (r *Registry) RecordAPIRequest(ctx context.Context, duration time.Duration, method, path string, statusCode int) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status_code", statusCode),
	}

	r.APIRequestDuration.Record(ctx, float64(duration.Microseconds())/1000.0, metric.WithAttributes(attrs...))
	r.APIRequestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}
