package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/auction"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/bid"
	domainerrors "github.com/hungtmh/online-auction-system-sub000/internal/domain/errors"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/order"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/rating"
	"github.com/hungtmh/online-auction-system-sub000/internal/service/bidding"
)

// In-memory repository fakes. They honor the same contracts as the pgx
// implementations so service tests can exercise full flows without a
// database.

// AuctionRepo is an in-memory bidding.AuctionRepository
type AuctionRepo struct {
	mu       sync.Mutex
	Auctions map[uuid.UUID]*auction.Auction
	// Err, when set, fails every call
	Err error
}

func NewAuctionRepo() *AuctionRepo {
	return &AuctionRepo{Auctions: make(map[uuid.UUID]*auction.Auction)}
}

func (r *AuctionRepo) Put(a *auction.Auction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.Auctions[a.ID] = &cp
}

func (r *AuctionRepo) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	a, ok := r.Auctions[id]
	if !ok {
		return nil, domainerrors.ErrAuctionNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *AuctionRepo) Update(ctx context.Context, a *auction.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Auctions[a.ID]; !ok {
		return domainerrors.ErrAuctionNotFound
	}
	cp := *a
	r.Auctions[a.ID] = &cp
	return nil
}

func (r *AuctionRepo) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var expired []*auction.Auction
	for _, a := range r.Auctions {
		if a.Status == auction.StatusActive && a.EndTime.Before(now) {
			cp := *a
			expired = append(expired, &cp)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].EndTime.Before(expired[j].EndTime) })
	if len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

// BidRepo is an in-memory bidding.BidRepository
type BidRepo struct {
	mu   sync.Mutex
	Bids []*bid.Bid
	Err  error
}

func NewBidRepo() *BidRepo {
	return &BidRepo{}
}

func (r *BidRepo) Append(ctx context.Context, b *bid.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	cp := *b
	r.Bids = append(r.Bids, &cp)
	return nil
}

func (r *BidRepo) ListValidByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []*bid.Bid
	for _, b := range r.Bids {
		if b.AuctionID == auctionID && !b.IsRejected {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *BidRepo) RejectAllByBidder(ctx context.Context, auctionID, bidderID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	n := 0
	for _, b := range r.Bids {
		if b.AuctionID == auctionID && b.BidderID == bidderID && !b.IsRejected {
			b.IsRejected = true
			n++
		}
	}
	return n, nil
}

func (r *BidRepo) DeleteByAuction(ctx context.Context, auctionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	kept := r.Bids[:0]
	for _, b := range r.Bids {
		if b.AuctionID != auctionID {
			kept = append(kept, b)
		}
	}
	r.Bids = kept
	return nil
}

// BlockRepo is an in-memory bidding.BlockListRepository
type BlockRepo struct {
	mu      sync.Mutex
	Blocked map[string]bool
	Err     error
}

func NewBlockRepo() *BlockRepo {
	return &BlockRepo{Blocked: make(map[string]bool)}
}

func blockKey(auctionID, bidderID uuid.UUID) string {
	return auctionID.String() + ":" + bidderID.String()
}

func (r *BlockRepo) IsBlocked(ctx context.Context, auctionID, bidderID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	return r.Blocked[blockKey(auctionID, bidderID)], nil
}

func (r *BlockRepo) Block(ctx context.Context, auctionID, bidderID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Blocked[blockKey(auctionID, bidderID)] = true
	return nil
}

// OrderRepo is an in-memory bidding.OrderRepository; CreateIfAbsent is
// idempotent on auction id like the unique index it mirrors
type OrderRepo struct {
	mu     sync.Mutex
	Orders map[uuid.UUID]*order.Order
	Err    error
}

func NewOrderRepo() *OrderRepo {
	return &OrderRepo{Orders: make(map[uuid.UUID]*order.Order)}
}

func (r *OrderRepo) CreateIfAbsent(ctx context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Orders[o.AuctionID]; ok {
		return nil
	}
	cp := *o
	r.Orders[o.AuctionID] = &cp
	return nil
}

func (r *OrderRepo) DeleteByAuction(ctx context.Context, auctionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	delete(r.Orders, auctionID)
	return nil
}

// RatingRepo is an in-memory bidding.RatingRepository
type RatingRepo struct {
	mu      sync.Mutex
	Ratings map[uuid.UUID][]*rating.Rating
	Err     error
}

func NewRatingRepo() *RatingRepo {
	return &RatingRepo{Ratings: make(map[uuid.UUID][]*rating.Rating)}
}

func (r *RatingRepo) Add(auctionID uuid.UUID, rec *rating.Rating) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Ratings[auctionID] = append(r.Ratings[auctionID], rec)
}

func (r *RatingRepo) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*rating.Rating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Ratings[auctionID], nil
}

// TxManager runs the function directly; the fakes have no transactions
type TxManager struct {
	// FailWith, when set, is returned without running fn
	FailWith error
}

func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	return fn(ctx)
}

// Settings returns canned values with the caller's fallback for
// anything unset
type Settings struct {
	Values map[string]int
}

func (s *Settings) GetInt(ctx context.Context, key string, fallback int) int {
	if s == nil || s.Values == nil {
		return fallback
	}
	if v, ok := s.Values[key]; ok {
		return v
	}
	return fallback
}

// CapturePublisher records every published event for assertions
type CapturePublisher struct {
	mu     sync.Mutex
	Events []bidding.Event
}

func (p *CapturePublisher) Publish(ctx context.Context, evt bidding.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, evt)
}

// ByKind returns captured events of one kind in publish order
func (p *CapturePublisher) ByKind(kind bidding.EventKind) []bidding.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []bidding.Event
	for _, e := range p.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Metrics counts recorder calls
type Metrics struct {
	mu            sync.Mutex
	Accepted      int
	Rejected      map[string]int
	AutoExtends   int
	ClosedWinner  int
	ClosedNoBids  int
}

func NewMetrics() *Metrics {
	return &Metrics{Rejected: make(map[string]int)}
}

func (m *Metrics) RecordBidAccepted(ctx context.Context, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Accepted++
}

func (m *Metrics) RecordBidRejected(ctx context.Context, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rejected[code]++
}

func (m *Metrics) RecordAutoExtend(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AutoExtends++
}

func (m *Metrics) RecordAuctionClosed(ctx context.Context, hasWinner bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hasWinner {
		m.ClosedWinner++
	} else {
		m.ClosedNoBids++
	}
}

// FixedClock returns a settable instant
type FixedClock struct {
	mu sync.Mutex
	T  time.Time
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.T
}

func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.T = c.T.Add(d)
}
