package closer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/auction"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/bid"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/order"
	"github.com/hungtmh/online-auction-system-sub000/internal/service/bidding"
)

const (
	// DefaultInterval is the sweep period between ticks
	DefaultInterval = time.Minute
	// DefaultBatchLimit caps how many auctions one tick finalizes
	DefaultBatchLimit = 50
)

// Closer is the scheduled sweep that finalizes auctions whose deadline
// has passed. Each auction's close takes the same exclusive lock as live
// bidding, so a bid and a close racing on one auction serialize.
type Closer struct {
	auctions   bidding.AuctionRepository
	bids       bidding.BidRepository
	orders     bidding.OrderRepository
	tx         bidding.TransactionManager
	locks      *bidding.KeyedMutex
	notifier   bidding.Publisher
	metrics    bidding.MetricsCollector
	clock      bidding.Clock
	logger     *zap.Logger
	interval   time.Duration
	batchLimit int
}

// Config tunes the sweep loop
type Config struct {
	Interval   time.Duration
	BatchLimit int
}

// New creates a closer sharing the bidding service's lock table
func New(
	auctions bidding.AuctionRepository,
	bids bidding.BidRepository,
	orders bidding.OrderRepository,
	tx bidding.TransactionManager,
	locks *bidding.KeyedMutex,
	notifier bidding.Publisher,
	metrics bidding.MetricsCollector,
	clock bidding.Clock,
	logger *zap.Logger,
	cfg Config,
) *Closer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = DefaultBatchLimit
	}
	if clock == nil {
		clock = bidding.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Closer{
		auctions:   auctions,
		bids:       bids,
		orders:     orders,
		tx:         tx,
		locks:      locks,
		notifier:   notifier,
		metrics:    metrics,
		clock:      clock,
		logger:     logger,
		interval:   cfg.Interval,
		batchLimit: cfg.BatchLimit,
	}
}

// Run drives RunTick on a fixed interval until the context is cancelled
func (c *Closer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("auction closer started",
		zap.Duration("interval", c.interval),
		zap.Int("batch_limit", c.batchLimit))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("auction closer stopped")
			return
		case <-ticker.C:
			if _, err := c.RunTick(ctx, c.clock.Now(), c.batchLimit); err != nil {
				c.logger.Error("closer tick failed", zap.Error(err))
			}
		}
	}
}

// RunTick finalizes up to batchLimit expired auctions. Per-auction
// failures are logged and do not abort the remaining batch; the tick is
// re-entrant safe since every step of a close is idempotent.
func (c *Closer) RunTick(ctx context.Context, now time.Time, batchLimit int) (int, error) {
	expired, err := c.auctions.ListExpiredActive(ctx, now, batchLimit)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, a := range expired {
		if err := c.closeOne(ctx, a.ID, now); err != nil {
			c.logger.Error("failed to close auction",
				zap.String("auction_id", a.ID.String()),
				zap.Error(err))
			continue
		}
		closed++
	}

	if closed > 0 {
		c.logger.Info("closer tick finished",
			zap.Int("expired", len(expired)),
			zap.Int("closed", closed))
	}
	return closed, nil
}

func (c *Closer) closeOne(ctx context.Context, auctionID uuid.UUID, now time.Time) error {
	unlock := c.locks.Lock(auctionID)
	defer unlock()

	// Reload under the lock: a late bid may have auto-extended the
	// deadline, or a buy-now may already have completed the auction.
	a, err := c.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return err
	}
	if a.Status != auction.StatusActive || now.Before(a.EndTime) {
		return nil
	}

	ledger, err := c.bids.ListValidByAuction(ctx, auctionID)
	if err != nil {
		return err
	}

	if len(ledger) == 0 {
		err = c.tx.WithTransaction(ctx, func(ctx context.Context) error {
			a.Finalize(nil, nil, now)
			return c.auctions.Update(ctx, a)
		})
		if err != nil {
			return err
		}
		c.notifyCompleted(ctx, a, nil)
		if c.metrics != nil {
			c.metrics.RecordAuctionClosed(ctx, false)
		}
		return nil
	}

	// The winner comes from the shared ranking; the final price is the
	// value the live resolver already converged on, not an independent
	// recomputation.
	top := bid.Leader(ledger)
	winner := top.BidderID
	final := a.CurrentPrice

	err = c.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := c.orders.CreateIfAbsent(ctx, order.New(a.ID, winner, a.SellerID, final)); err != nil {
			return err
		}
		a.Finalize(&winner, &final, now)
		return c.auctions.Update(ctx, a)
	})
	if err != nil {
		return err
	}

	c.notifyCompleted(ctx, a, &winner)
	if c.metrics != nil {
		c.metrics.RecordAuctionClosed(ctx, true)
	}
	return nil
}

func (c *Closer) notifyCompleted(ctx context.Context, a *auction.Auction, winner *uuid.UUID) {
	if c.notifier == nil {
		return
	}

	payload := map[string]interface{}{}
	if a.FinalPrice != nil {
		payload["final_price"] = *a.FinalPrice
	}
	if winner != nil {
		payload["winner_id"] = *winner
	}

	seller := a.SellerID
	c.notifier.Publish(ctx, bidding.Event{
		Kind:        bidding.EventAuctionCompleted,
		AuctionID:   a.ID,
		RecipientID: &seller,
		Payload:     payload,
		OccurredAt:  c.clock.Now(),
	})

	if winner != nil {
		c.notifier.Publish(ctx, bidding.Event{
			Kind:        bidding.EventAuctionCompleted,
			AuctionID:   a.ID,
			RecipientID: winner,
			Payload:     payload,
			OccurredAt:  c.clock.Now(),
		})
	}
}
