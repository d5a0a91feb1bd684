package bid

import (
	"time"

	"github.com/google/uuid"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/values"
)

// Bid is one append-only ledger record. Records are never deleted;
// disqualification flips IsRejected and nothing else ever changes after
// insertion.
type Bid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	BidderID  uuid.UUID `json:"bidder_id"`

	// MaxAmount is the bidder's private ceiling.
	MaxAmount values.Money `json:"max_bid_amount"`
	// Amount is the public current price at the moment this bid was
	// accepted, which may be well below MaxAmount.
	Amount values.Money `json:"bid_amount"`

	IsRejected bool      `json:"is_rejected"`
	CreatedAt  time.Time `json:"created_at"`
}

// New creates a ledger record for an accepted bid
func New(auctionID, bidderID uuid.UUID, maxAmount, amount values.Money, at time.Time) *Bid {
	return &Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		MaxAmount: maxAmount,
		Amount:    amount,
		CreatedAt: at,
	}
}

// Valid reports whether the record still counts toward price and winner
func (b *Bid) Valid() bool {
	return !b.IsRejected
}
