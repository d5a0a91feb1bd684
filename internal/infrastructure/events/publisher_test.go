package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hungtmh/online-auction-system-sub000/internal/service/bidding"
)

type captureSink struct {
	mu     sync.Mutex
	events []bidding.Event
	err    error
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Deliver(_ context.Context, evt bidding.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return s.err
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func event(kind bidding.EventKind) bidding.Event {
	return bidding.Event{
		Kind:       kind,
		AuctionID:  uuid.New(),
		OccurredAt: time.Now(),
	}
}

func TestPublishDelivers(t *testing.T) {
	sink := &captureSink{}
	p := NewAsyncPublisher(Config{QueueSize: 16, Workers: 2}, nil, sink)

	for i := 0; i < 10; i++ {
		p.Publish(context.Background(), event(bidding.EventBidAccepted))
	}
	p.Close()

	assert.Equal(t, 10, sink.count(), "close drains the queue before returning")
}

func TestPublishNeverBlocks(t *testing.T) {
	// No workers would ever drain a zero-worker publisher, so fill the
	// queue and confirm the overflow is dropped instead of blocking.
	sink := &captureSink{}
	p := NewAsyncPublisher(Config{QueueSize: 1, Workers: 1}, nil, slowSink{sink})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			p.Publish(context.Background(), event(bidding.EventOutbid))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
	p.Close()
}

func TestSinkFailureDoesNotStopOthers(t *testing.T) {
	failing := &captureSink{err: assert.AnError}
	healthy := &captureSink{}
	p := NewAsyncPublisher(Config{QueueSize: 16, Workers: 1}, nil, failing, healthy)

	p.Publish(context.Background(), event(bidding.EventAuctionCompleted))
	p.Close()

	require.Equal(t, 1, healthy.count(), "a failing sink must not starve the rest")
}

func TestPublishAfterClose(t *testing.T) {
	sink := &captureSink{}
	p := NewAsyncPublisher(Config{QueueSize: 16, Workers: 1}, nil, sink)
	p.Close()

	// Must not panic or block.
	p.Publish(context.Background(), event(bidding.EventBidAccepted))
	assert.Equal(t, 0, sink.count())
}

type slowSink struct {
	inner *captureSink
}

func (s slowSink) Name() string { return "slow" }

func (s slowSink) Deliver(ctx context.Context, evt bidding.Event) error {
	time.Sleep(10 * time.Millisecond)
	return s.inner.Deliver(ctx, evt)
}
