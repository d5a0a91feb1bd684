package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hungtmh/online-auction-system-sub000/internal/service/bidding"
)

// Sink delivers one notification to an outbound channel (mail queue,
// push gateway, log). Sinks may fail; the publisher logs and moves on.
type Sink interface {
	Deliver(ctx context.Context, evt bidding.Event) error
	Name() string
}

// AsyncPublisher decouples notification delivery from the mutation path.
// Publish enqueues and returns immediately; worker goroutines drain the
// queue and fan out to the sinks. A full queue drops the event with a
// log line; notifications are best effort and a slow mail gateway must
// never stall a bid.
type AsyncPublisher struct {
	logger *zap.Logger
	sinks  []Sink
	queue  chan bidding.Event
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// Config tunes the publisher's queue and worker pool
type Config struct {
	QueueSize int
	Workers   int
}

// NewAsyncPublisher creates and starts the publisher
func NewAsyncPublisher(cfg Config, logger *zap.Logger, sinks ...Sink) *AsyncPublisher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &AsyncPublisher{
		logger: logger,
		sinks:  sinks,
		queue:  make(chan bidding.Event, cfg.QueueSize),
	}

	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Publish enqueues an event without blocking the caller
func (p *AsyncPublisher) Publish(_ context.Context, evt bidding.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("event dropped, publisher closed",
			zap.String("kind", string(evt.Kind)),
			zap.String("auction_id", evt.AuctionID.String()))
		return
	}

	select {
	case p.queue <- evt:
	default:
		p.logger.Warn("event dropped, queue full",
			zap.String("kind", string(evt.Kind)),
			zap.String("auction_id", evt.AuctionID.String()))
	}
}

// Close stops accepting events and waits for the queue to drain
func (p *AsyncPublisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *AsyncPublisher) worker() {
	defer p.wg.Done()
	for evt := range p.queue {
		p.deliver(evt)
	}
}

func (p *AsyncPublisher) deliver(evt bidding.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, sink := range p.sinks {
		if err := sink.Deliver(ctx, evt); err != nil {
			p.logger.Error("notification delivery failed",
				zap.String("sink", sink.Name()),
				zap.String("kind", string(evt.Kind)),
				zap.String("auction_id", evt.AuctionID.String()),
				zap.Error(err))
		}
	}
}

// LogSink records every event at info level; the default sink in
// development and the safety net in production.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink writing to the given logger
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, evt bidding.Event) error {
	fields := []zap.Field{
		zap.String("kind", string(evt.Kind)),
		zap.String("auction_id", evt.AuctionID.String()),
		zap.Time("occurred_at", evt.OccurredAt),
	}
	if evt.RecipientID != nil {
		fields = append(fields, zap.String("recipient_id", evt.RecipientID.String()))
	}
	s.logger.Info("auction event", fields...)
	return nil
}
