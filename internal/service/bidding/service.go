package bidding

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/auction"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/bid"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/errors"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/order"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/rating"
)

// service implements the Service interface
type service struct {
	auctions AuctionRepository
	bids     BidRepository
	blocks   BlockListRepository
	orders   OrderRepository
	ratings  RatingRepository
	tx       TransactionManager
	settings SettingsProvider
	locks    *KeyedMutex
	policy   *AutoExtendPolicy
	notifier Publisher
	metrics  MetricsCollector
	clock    Clock
	logger   *zap.Logger
}

// Deps bundles the service's collaborators
type Deps struct {
	Auctions AuctionRepository
	Bids     BidRepository
	Blocks   BlockListRepository
	Orders   OrderRepository
	Ratings  RatingRepository
	Tx       TransactionManager
	Settings SettingsProvider
	Locks    *KeyedMutex
	Notifier Publisher
	Metrics  MetricsCollector
	Clock    Clock
	Logger   *zap.Logger
}

// NewService creates the proxy-bidding service
func NewService(d Deps) Service {
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	if d.Locks == nil {
		d.Locks = NewKeyedMutex()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &service{
		auctions: d.Auctions,
		bids:     d.Bids,
		blocks:   d.Blocks,
		orders:   d.Orders,
		ratings:  d.Ratings,
		tx:       d.Tx,
		settings: d.Settings,
		locks:    d.Locks,
		policy:   NewAutoExtendPolicy(d.Settings),
		notifier: d.Notifier,
		metrics:  d.Metrics,
		clock:    d.Clock,
		logger:   d.Logger,
	}
}

// SubmitBid appends a new max bid to the ledger and re-derives the
// public price and provisional leader. The whole read-compute-write
// sequence holds the auction's exclusive lock; two near-simultaneous
// bids on the same auction serialize instead of both computing against
// a stale price.
func (s *service) SubmitBid(ctx context.Context, req *SubmitBidRequest) (*SubmitBidResult, error) {
	start := time.Now()

	unlock := s.locks.Lock(req.AuctionID)
	defer unlock()

	a, err := s.auctions.GetByID(ctx, req.AuctionID)
	if err != nil {
		return nil, s.rejected(ctx, errors.ErrAuctionNotFound)
	}

	now := s.clock.Now()
	if a.Status != auction.StatusActive {
		return nil, s.rejected(ctx, errors.ErrAuctionNotActive)
	}
	if !now.Before(a.EndTime) {
		return nil, s.rejected(ctx, errors.ErrAuctionExpired)
	}
	if req.BidderID == a.SellerID {
		return nil, s.rejected(ctx, errors.ErrSelfBid)
	}

	blocked, err := s.blocks.IsBlocked(ctx, req.AuctionID, req.BidderID)
	if err != nil {
		return nil, errors.NewInternalError("failed to check block list").WithCause(err)
	}
	if blocked {
		return nil, s.rejected(ctx, errors.ErrBidderBlocked)
	}

	if req.MaxBid.Currency() != a.StartingPrice.Currency() {
		return nil, s.rejected(ctx, errors.ErrInvalidBid)
	}
	if req.MaxBid.LessThan(a.StartingPrice) {
		return nil, s.rejected(ctx, errors.ErrInvalidBid)
	}

	ledger, err := s.bids.ListValidByAuction(ctx, req.AuctionID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load bid ledger").WithCause(err)
	}

	if prior := bid.HighestMax(ledger, req.BidderID); prior != nil && !req.MaxBid.GreaterThan(*prior) {
		return nil, s.rejected(ctx, errors.ErrStaleBid)
	}

	prevLeader := bid.Leader(ledger)
	rivals := bid.ExcludeBidder(ledger, req.BidderID)
	res := bid.Resolve(a, rivals, req.BidderID, req.MaxBid)
	record := bid.New(req.AuctionID, req.BidderID, req.MaxBid, res.BidAmount, now)

	extended := false
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.bids.Append(ctx, record); err != nil {
			return err
		}

		a.CurrentPrice = res.NewPrice
		a.BidCount++

		if res.FinalizeNow {
			winner := req.BidderID
			final := res.NewPrice
			a.Finalize(&winner, &final, now)
			if err := s.orders.CreateIfAbsent(ctx, order.New(a.ID, winner, a.SellerID, final)); err != nil {
				return err
			}
		} else if newEnd, ok := s.policy.MaybeExtend(ctx, a, now); ok {
			a.EndTime = newEnd
			a.UpdatedAt = now
			extended = true
		}

		return s.auctions.Update(ctx, a)
	})
	if err != nil {
		return nil, errors.NewInternalError("failed to persist bid").WithCause(err)
	}

	s.notifyBidAccepted(ctx, a, req, prevLeader, res, extended)

	if s.metrics != nil {
		s.metrics.RecordBidAccepted(ctx, time.Since(start))
		if extended {
			s.metrics.RecordAutoExtend(ctx)
		}
		if res.FinalizeNow {
			s.metrics.RecordAuctionClosed(ctx, true)
		}
	}

	return &SubmitBidResult{
		Accepted:     true,
		CurrentPrice: res.NewPrice,
		IsWinning:    res.LeaderID == req.BidderID,
		Status:       a.Status,
	}, nil
}

// DisqualifyBidder voids every bid by one bidder and re-derives the
// price from the survivors using the same ranking rule as the live
// resolver. The bid count is recounted from the ledger rather than
// decremented, healing any prior drift.
func (s *service) DisqualifyBidder(ctx context.Context, req *DisqualifyRequest) (*DisqualifyResult, error) {
	unlock := s.locks.Lock(req.AuctionID)
	defer unlock()

	a, err := s.auctions.GetByID(ctx, req.AuctionID)
	if err != nil {
		return nil, errors.ErrAuctionNotFound
	}
	if a.SellerID != req.SellerID {
		return nil, errors.ErrNotSeller
	}
	if a.Status == auction.StatusCompleted || a.Status == auction.StatusCancelled {
		return nil, errors.ErrAuctionNotActive
	}

	var result DisqualifyResult
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.blocks.Block(ctx, req.AuctionID, req.BidderID); err != nil {
			return err
		}
		if _, err := s.bids.RejectAllByBidder(ctx, req.AuctionID, req.BidderID); err != nil {
			return err
		}

		survivors, err := s.bids.ListValidByAuction(ctx, req.AuctionID)
		if err != nil {
			return err
		}

		newPrice, _ := bid.Recalculate(a, survivors)
		a.CurrentPrice = newPrice
		a.BidCount = len(survivors)
		a.UpdatedAt = s.clock.Now()

		result = DisqualifyResult{NewPrice: newPrice, NewBidCount: len(survivors)}
		return s.auctions.Update(ctx, a)
	})
	if err != nil {
		return nil, errors.NewInternalError("failed to disqualify bidder").WithCause(err)
	}

	s.publish(ctx, Event{
		Kind:        EventBidderDisqualified,
		AuctionID:   req.AuctionID,
		RecipientID: &req.BidderID,
		Payload: map[string]interface{}{
			"reason":    req.Reason,
			"new_price": result.NewPrice,
		},
		OccurredAt: s.clock.Now(),
	})

	return &result, nil
}

// ReopenAuction resets a sold-but-unpaid auction for a fresh round. The
// precondition is deliberately narrow: the auction's rating history from
// the seller must be exactly one negative rating with the canonical
// non-payment comment.
func (s *service) ReopenAuction(ctx context.Context, auctionID, sellerID uuid.UUID, newEndTime time.Time) error {
	unlock := s.locks.Lock(auctionID)
	defer unlock()

	a, err := s.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return errors.ErrAuctionNotFound
	}
	if a.SellerID != sellerID {
		return errors.ErrNotSeller
	}

	history, err := s.ratings.ListByAuction(ctx, auctionID)
	if err != nil {
		return errors.NewInternalError("failed to load rating history").WithCause(err)
	}
	if !rating.QualifiesForReopen(history, sellerID) {
		return errors.ErrReopenNotAllowed
	}

	minPct := s.settings.GetInt(ctx, SettingMinBidIncrementPct, DefaultMinBidIncrementPct)
	if err := a.ValidateParams(int64(minPct)); err != nil {
		return errors.NewValidationError("INVALID_AUCTION_PARAMS", err.Error()).WithCause(err)
	}

	now := s.clock.Now()
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.bids.DeleteByAuction(ctx, auctionID); err != nil {
			return err
		}
		if err := s.orders.DeleteByAuction(ctx, auctionID); err != nil {
			return err
		}
		if err := a.Reopen(newEndTime, now); err != nil {
			return err
		}
		return s.auctions.Update(ctx, a)
	})
	if err != nil {
		return errors.NewInternalError("failed to reopen auction").WithCause(err)
	}

	s.publish(ctx, Event{
		Kind:       EventAuctionReopened,
		AuctionID:  auctionID,
		Payload:    map[string]interface{}{"end_time": newEndTime},
		OccurredAt: now,
	})
	return nil
}

// IsWinning reuses the shared ranking over the live ledger; it never
// mutates state.
func (s *service) IsWinning(ctx context.Context, auctionID, bidderID uuid.UUID) (bool, error) {
	leader, err := s.CurrentLeader(ctx, auctionID)
	if err != nil {
		return false, err
	}
	return leader != nil && *leader == bidderID, nil
}

// CurrentLeader derives the provisional leader from the ledger
func (s *service) CurrentLeader(ctx context.Context, auctionID uuid.UUID) (*uuid.UUID, error) {
	if _, err := s.auctions.GetByID(ctx, auctionID); err != nil {
		return nil, errors.ErrAuctionNotFound
	}
	ledger, err := s.bids.ListValidByAuction(ctx, auctionID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load bid ledger").WithCause(err)
	}
	top := bid.Leader(ledger)
	if top == nil {
		return nil, nil
	}
	leader := top.BidderID
	return &leader, nil
}

// GetAuction returns the auction's public state
func (s *service) GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	a, err := s.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return nil, errors.ErrAuctionNotFound
	}
	return a, nil
}

func (s *service) notifyBidAccepted(ctx context.Context, a *auction.Auction, req *SubmitBidRequest, prevLeader *bid.Standing, res bid.Resolution, extended bool) {
	displaced := prevLeader != nil &&
		prevLeader.BidderID != res.LeaderID &&
		prevLeader.BidderID != req.BidderID

	s.publish(ctx, Event{
		Kind:        EventBidAccepted,
		AuctionID:   a.ID,
		RecipientID: &req.BidderID,
		Payload: map[string]interface{}{
			"current_price":    res.NewPrice,
			"is_winning":       res.LeaderID == req.BidderID,
			"displaced_leader": displaced,
		},
		OccurredAt: s.clock.Now(),
	})

	// Only a displaced leader hears about being outbid; a bid that left
	// the leader in place generates nothing.
	if displaced {
		outbid := prevLeader.BidderID
		s.publish(ctx, Event{
			Kind:        EventOutbid,
			AuctionID:   a.ID,
			RecipientID: &outbid,
			Payload:     map[string]interface{}{"current_price": res.NewPrice},
			OccurredAt:  s.clock.Now(),
		})
	}

	if extended {
		s.publish(ctx, Event{
			Kind:       EventAuctionExtended,
			AuctionID:  a.ID,
			Payload:    map[string]interface{}{"end_time": a.EndTime},
			OccurredAt: s.clock.Now(),
		})
	}

	if res.FinalizeNow {
		winner := req.BidderID
		s.publish(ctx, Event{
			Kind:        EventAuctionCompleted,
			AuctionID:   a.ID,
			RecipientID: &winner,
			Payload: map[string]interface{}{
				"final_price": res.NewPrice,
				"buy_now":     true,
			},
			OccurredAt: s.clock.Now(),
		})
		seller := a.SellerID
		s.publish(ctx, Event{
			Kind:        EventAuctionCompleted,
			AuctionID:   a.ID,
			RecipientID: &seller,
			Payload: map[string]interface{}{
				"final_price": res.NewPrice,
				"buy_now":     true,
			},
			OccurredAt: s.clock.Now(),
		})
	}
}

func (s *service) publish(ctx context.Context, evt Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, evt)
}

func (s *service) rejected(ctx context.Context, err *errors.AppError) error {
	if s.metrics != nil {
		s.metrics.RecordBidRejected(ctx, err.Code)
	}
	return err
}
