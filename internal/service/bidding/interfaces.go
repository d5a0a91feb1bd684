package bidding

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/auction"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/bid"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/order"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/rating"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/values"
)

// Service is the core-facing contract for the proxy-bidding engine
type Service interface {
	// SubmitBid runs the proxy protocol for a new max bid
	SubmitBid(ctx context.Context, req *SubmitBidRequest) (*SubmitBidResult, error)
	// DisqualifyBidder voids a bidder's participation in one auction and
	// re-derives price and count from the survivors
	DisqualifyBidder(ctx context.Context, req *DisqualifyRequest) (*DisqualifyResult, error)
	// ReopenAuction resets a closed auction for a fresh bidding round
	ReopenAuction(ctx context.Context, auctionID, sellerID uuid.UUID, newEndTime time.Time) error
	// IsWinning reports whether the bidder currently leads the auction
	IsWinning(ctx context.Context, auctionID, bidderID uuid.UUID) (bool, error)
	// CurrentLeader returns the bidder currently winning, or nil
	CurrentLeader(ctx context.Context, auctionID uuid.UUID) (*uuid.UUID, error)
	// GetAuction returns the auction's public state
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error)
}

// SubmitBidRequest carries one proxy bid submission
type SubmitBidRequest struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	MaxBid    values.Money
}

// SubmitBidResult reports the outcome of an accepted bid
type SubmitBidResult struct {
	Accepted     bool           `json:"accepted"`
	CurrentPrice values.Money   `json:"current_price"`
	IsWinning    bool           `json:"is_winning"`
	Status       auction.Status `json:"status"`
}

// DisqualifyRequest is a seller-initiated voiding of one bidder
type DisqualifyRequest struct {
	AuctionID uuid.UUID
	SellerID  uuid.UUID
	BidderID  uuid.UUID
	Reason    string
}

// DisqualifyResult carries the recomputed projection
type DisqualifyResult struct {
	NewPrice    values.Money `json:"new_price"`
	NewBidCount int          `json:"new_bid_count"`
}

// AuctionRepository defines the interface for auction storage
type AuctionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)
	Update(ctx context.Context, a *auction.Auction) error
	// ListExpiredActive returns active auctions whose deadline has passed,
	// oldest deadline first, capped at limit.
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error)
}

// BidRepository defines the interface for the append-only bid ledger
type BidRepository interface {
	Append(ctx context.Context, b *bid.Bid) error
	// ListValidByAuction returns the non-rejected records in insertion order
	ListValidByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)
	// RejectAllByBidder flags every non-rejected record by the bidder,
	// returning how many were flipped
	RejectAllByBidder(ctx context.Context, auctionID, bidderID uuid.UUID) (int, error)
	// DeleteByAuction clears the ledger; used only by reopen
	DeleteByAuction(ctx context.Context, auctionID uuid.UUID) error
}

// BlockListRepository records per-auction bidder blocks with set semantics
type BlockListRepository interface {
	IsBlocked(ctx context.Context, auctionID, bidderID uuid.UUID) (bool, error)
	// Block inserts the entry if absent; inserting twice is a no-op
	Block(ctx context.Context, auctionID, bidderID uuid.UUID) error
}

// OrderRepository stores pending-payment orders for finalized auctions
type OrderRepository interface {
	// CreateIfAbsent inserts the order unless one already exists for the
	// auction; re-running finalization must not duplicate it
	CreateIfAbsent(ctx context.Context, o *order.Order) error
	DeleteByAuction(ctx context.Context, auctionID uuid.UUID) error
}

// RatingRepository is the narrow read model over the rating collaborator
type RatingRepository interface {
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*rating.Rating, error)
}

// TransactionManager scopes repository calls to one database transaction
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SettingsProvider resolves marketplace settings with a TTL cache behind
// it; lookups never fail, they fall back to the supplied default.
type SettingsProvider interface {
	GetInt(ctx context.Context, key string, fallback int) int
}

// Settings keys consulted by the core
const (
	SettingAutoExtendMinutes    = "auto_extend_minutes"
	SettingAutoExtendThreshold  = "auto_extend_threshold"
	SettingMinBidIncrementPct   = "min_bid_increment_percent"
	DefaultAutoExtendMinutes    = 5
	DefaultAutoExtendThreshold  = 5
	DefaultMinBidIncrementPct   = 0
)

// EventKind names an outbound notification
type EventKind string

const (
	EventBidAccepted        EventKind = "bid.accepted"
	EventOutbid             EventKind = "bid.outbid"
	EventAuctionExtended    EventKind = "auction.extended"
	EventAuctionCompleted   EventKind = "auction.completed"
	EventBidderDisqualified EventKind = "bidder.disqualified"
	EventAuctionReopened    EventKind = "auction.reopened"
)

// Event is one outbound notification. Delivery is best effort and
// asynchronous; a failed delivery never rolls back the mutation that
// produced it.
type Event struct {
	Kind        EventKind              `json:"kind"`
	AuctionID   uuid.UUID              `json:"auction_id"`
	RecipientID *uuid.UUID             `json:"recipient_id,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

// Publisher accepts events for asynchronous delivery; it must not block
// the caller
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// MetricsCollector records domain metrics; implementations may be nil-safe
type MetricsCollector interface {
	RecordBidAccepted(ctx context.Context, duration time.Duration)
	RecordBidRejected(ctx context.Context, code string)
	RecordAutoExtend(ctx context.Context)
	RecordAuctionClosed(ctx context.Context, hasWinner bool)
}

// Clock abstracts time for deterministic tests
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
