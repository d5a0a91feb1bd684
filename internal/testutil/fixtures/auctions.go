package fixtures

import (
	"time"

	"github.com/google/uuid"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/auction"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/bid"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/values"
)

// BaseTime is the fixed instant fixtures are built around so tests can
// reason about deadlines without touching the wall clock.
var BaseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// VND builds a VND amount from an integer, the common case in tests
func VND(amount int64) values.Money {
	return values.MustNewMoneyFromFloat(float64(amount), values.VND)
}

// AuctionBuilder builds test auctions
type AuctionBuilder struct {
	a *auction.Auction
}

// NewAuctionBuilder returns a builder for an active auction: starting
// price 100, step 10, one hour remaining from BaseTime.
func NewAuctionBuilder() *AuctionBuilder {
	return &AuctionBuilder{a: &auction.Auction{
		ID:            uuid.New(),
		SellerID:      uuid.New(),
		Title:         "test auction",
		StartingPrice: VND(100),
		StepPrice:     VND(10),
		CurrentPrice:  VND(100),
		Status:        auction.StatusActive,
		StartTime:     BaseTime.Add(-time.Hour),
		EndTime:       BaseTime.Add(time.Hour),
		CreatedAt:     BaseTime.Add(-time.Hour),
		UpdatedAt:     BaseTime.Add(-time.Hour),
	}}
}

func (b *AuctionBuilder) WithID(id uuid.UUID) *AuctionBuilder {
	b.a.ID = id
	return b
}

func (b *AuctionBuilder) WithSeller(id uuid.UUID) *AuctionBuilder {
	b.a.SellerID = id
	return b
}

func (b *AuctionBuilder) WithPrices(starting, step values.Money) *AuctionBuilder {
	b.a.StartingPrice = starting
	b.a.StepPrice = step
	b.a.CurrentPrice = starting
	return b
}

func (b *AuctionBuilder) WithCurrentPrice(p values.Money) *AuctionBuilder {
	b.a.CurrentPrice = p
	return b
}

func (b *AuctionBuilder) WithBuyNow(p values.Money) *AuctionBuilder {
	b.a.BuyNowPrice = &p
	return b
}

func (b *AuctionBuilder) WithStatus(s auction.Status) *AuctionBuilder {
	b.a.Status = s
	return b
}

func (b *AuctionBuilder) WithEndTime(t time.Time) *AuctionBuilder {
	b.a.EndTime = t
	return b
}

func (b *AuctionBuilder) WithAutoExtend(minutes, thresholdMinutes int) *AuctionBuilder {
	b.a.AutoExtendEnabled = true
	b.a.AutoExtendMinutes = minutes
	b.a.AutoExtendThresholdMinutes = thresholdMinutes
	return b
}

func (b *AuctionBuilder) WithBidCount(n int) *AuctionBuilder {
	b.a.BidCount = n
	return b
}

func (b *AuctionBuilder) Build() *auction.Auction {
	cp := *b.a
	return &cp
}

// NewBid builds a valid ledger record with the bid amount equal to the
// max, which is what a first bid with no rivals looks like.
func NewBid(auctionID, bidderID uuid.UUID, maxAmount values.Money, at time.Time) *bid.Bid {
	return bid.New(auctionID, bidderID, maxAmount, maxAmount, at)
}
