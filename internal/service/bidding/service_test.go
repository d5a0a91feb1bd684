package bidding_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/auction"
	domainerrors "github.com/hungtmh/online-auction-system-sub000/internal/domain/errors"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/rating"
	"github.com/hungtmh/online-auction-system-sub000/internal/service/bidding"
	"github.com/hungtmh/online-auction-system-sub000/internal/testutil/fixtures"
	"github.com/hungtmh/online-auction-system-sub000/internal/testutil/mocks"
)

type env struct {
	auctions *mocks.AuctionRepo
	bids     *mocks.BidRepo
	blocks   *mocks.BlockRepo
	orders   *mocks.OrderRepo
	ratings  *mocks.RatingRepo
	events   *mocks.CapturePublisher
	metrics  *mocks.Metrics
	clock    *mocks.FixedClock
	svc      bidding.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		auctions: mocks.NewAuctionRepo(),
		bids:     mocks.NewBidRepo(),
		blocks:   mocks.NewBlockRepo(),
		orders:   mocks.NewOrderRepo(),
		ratings:  mocks.NewRatingRepo(),
		events:   &mocks.CapturePublisher{},
		metrics:  mocks.NewMetrics(),
		clock:    &mocks.FixedClock{T: fixtures.BaseTime},
	}
	e.svc = bidding.NewService(bidding.Deps{
		Auctions: e.auctions,
		Bids:     e.bids,
		Blocks:   e.blocks,
		Orders:   e.orders,
		Ratings:  e.ratings,
		Tx:       &mocks.TxManager{},
		Settings: &mocks.Settings{},
		Notifier: e.events,
		Metrics:  e.metrics,
		Clock:    e.clock,
	})
	return e
}

func (e *env) submit(t *testing.T, auctionID, bidderID uuid.UUID, max int64) (*bidding.SubmitBidResult, error) {
	t.Helper()
	return e.svc.SubmitBid(context.Background(), &bidding.SubmitBidRequest{
		AuctionID: auctionID,
		BidderID:  bidderID,
		MaxBid:    fixtures.VND(max),
	})
}

func TestSubmitBid_FirstBid(t *testing.T) {
	e := newEnv(t)
	a := fixtures.NewAuctionBuilder().Build()
	e.auctions.Put(a)
	bidder := uuid.New()

	res, err := e.submit(t, a.ID, bidder, 500)
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.True(t, res.CurrentPrice.Equal(fixtures.VND(100)), "no rivals keeps the price at starting")
	assert.True(t, res.IsWinning)

	stored, _ := e.auctions.GetByID(context.Background(), a.ID)
	assert.Equal(t, 1, stored.BidCount)
	assert.True(t, stored.CurrentPrice.Equal(fixtures.VND(100)))

	ledger, _ := e.bids.ListValidByAuction(context.Background(), a.ID)
	require.Len(t, ledger, 1)
	assert.True(t, ledger[0].MaxAmount.Equal(fixtures.VND(500)), "the private ceiling is recorded")
	assert.True(t, ledger[0].Amount.Equal(fixtures.VND(100)), "the public amount is the resolved price")

	require.Len(t, e.events.ByKind(bidding.EventBidAccepted), 1)
	assert.Empty(t, e.events.ByKind(bidding.EventOutbid))
	assert.Equal(t, 1, e.metrics.Accepted)
}

func TestSubmitBid_Rejections(t *testing.T) {
	seller := uuid.New()
	blocked := uuid.New()

	tests := []struct {
		name     string
		build    func(e *env) *auction.Auction
		bidder   uuid.UUID
		max      int64
		wantCode string
	}{
		{
			name: "auction not found",
			build: func(e *env) *auction.Auction {
				return fixtures.NewAuctionBuilder().Build() // never stored
			},
			bidder:   uuid.New(),
			max:      500,
			wantCode: "RESOURCE_NOT_FOUND",
		},
		{
			name: "auction pending",
			build: func(e *env) *auction.Auction {
				a := fixtures.NewAuctionBuilder().WithStatus(auction.StatusPending).Build()
				e.auctions.Put(a)
				return a
			},
			bidder:   uuid.New(),
			max:      500,
			wantCode: "AUCTION_NOT_ACTIVE",
		},
		{
			name: "auction completed",
			build: func(e *env) *auction.Auction {
				a := fixtures.NewAuctionBuilder().WithStatus(auction.StatusCompleted).Build()
				e.auctions.Put(a)
				return a
			},
			bidder:   uuid.New(),
			max:      500,
			wantCode: "AUCTION_NOT_ACTIVE",
		},
		{
			name: "deadline passed but closer has not swept yet",
			build: func(e *env) *auction.Auction {
				a := fixtures.NewAuctionBuilder().WithEndTime(fixtures.BaseTime.Add(-time.Minute)).Build()
				e.auctions.Put(a)
				return a
			},
			bidder:   uuid.New(),
			max:      500,
			wantCode: "AUCTION_EXPIRED",
		},
		{
			name: "seller bidding on own auction",
			build: func(e *env) *auction.Auction {
				a := fixtures.NewAuctionBuilder().WithSeller(seller).Build()
				e.auctions.Put(a)
				return a
			},
			bidder:   seller,
			max:      500,
			wantCode: "FORBIDDEN",
		},
		{
			name: "blocked bidder",
			build: func(e *env) *auction.Auction {
				a := fixtures.NewAuctionBuilder().Build()
				e.auctions.Put(a)
				require.NoError(t, e.blocks.Block(context.Background(), a.ID, blocked))
				return a
			},
			bidder:   blocked,
			max:      500,
			wantCode: "FORBIDDEN",
		},
		{
			name: "below starting price",
			build: func(e *env) *auction.Auction {
				a := fixtures.NewAuctionBuilder().Build()
				e.auctions.Put(a)
				return a
			},
			bidder:   uuid.New(),
			max:      99,
			wantCode: "INVALID_BID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			a := tt.build(e)

			_, err := e.submit(t, a.ID, tt.bidder, tt.max)

			require.Error(t, err)
			assert.True(t, domainerrors.IsCode(err, tt.wantCode), "got %v, want code %s", err, tt.wantCode)

			ledger, _ := e.bids.ListValidByAuction(context.Background(), a.ID)
			assert.Empty(t, ledger, "a rejected bid must not touch the ledger")
		})
	}
}

func TestSubmitBid_AtStartingPriceAccepted(t *testing.T) {
	e := newEnv(t)
	a := fixtures.NewAuctionBuilder().Build()
	e.auctions.Put(a)

	res, err := e.submit(t, a.ID, uuid.New(), 100)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestSubmitBid_StaleMax(t *testing.T) {
	e := newEnv(t)
	a := fixtures.NewAuctionBuilder().Build()
	e.auctions.Put(a)
	bidder := uuid.New()

	_, err := e.submit(t, a.ID, bidder, 300)
	require.NoError(t, err)

	// Resubmitting the same ceiling is stale, not idempotent.
	_, err = e.submit(t, a.ID, bidder, 300)
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, "STALE_BID"))
	assert.Equal(t, 409, domainerrors.GetStatusCode(err))

	_, err = e.submit(t, a.ID, bidder, 250)
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, "STALE_BID"))

	res, err := e.submit(t, a.ID, bidder, 301)
	require.NoError(t, err)
	assert.True(t, res.IsWinning)
}

func TestSubmitBid_ProxyContest(t *testing.T) {
	e := newEnv(t)
	a := fixtures.NewAuctionBuilder().Build()
	e.auctions.Put(a)
	alice := uuid.New()
	bob := uuid.New()

	_, err := e.submit(t, a.ID, alice, 500)
	require.NoError(t, err)

	// Bob challenges below Alice's ceiling: price rises to his max, he
	// does not win, and Alice hears nothing.
	res, err := e.submit(t, a.ID, bob, 300)
	require.NoError(t, err)
	assert.True(t, res.CurrentPrice.Equal(fixtures.VND(300)))
	assert.False(t, res.IsWinning)
	assert.Empty(t, e.events.ByKind(bidding.EventOutbid))

	// Bob overtakes: second price plus step, and Alice is notified.
	res, err = e.submit(t, a.ID, bob, 600)
	require.NoError(t, err)
	assert.True(t, res.CurrentPrice.Equal(fixtures.VND(510)))
	assert.True(t, res.IsWinning)

	outbid := e.events.ByKind(bidding.EventOutbid)
	require.Len(t, outbid, 1)
	require.NotNil(t, outbid[0].RecipientID)
	assert.Equal(t, alice, *outbid[0].RecipientID)

	stored, _ := e.auctions.GetByID(context.Background(), a.ID)
	assert.Equal(t, 3, stored.BidCount)
}

func TestSubmitBid_RaisingOwnMaxSilently(t *testing.T) {
	e := newEnv(t)
	a := fixtures.NewAuctionBuilder().Build()
	e.auctions.Put(a)
	alice := uuid.New()

	_, err := e.submit(t, a.ID, alice, 500)
	require.NoError(t, err)

	res, err := e.submit(t, a.ID, alice, 900)
	require.NoError(t, err)

	assert.True(t, res.CurrentPrice.Equal(fixtures.VND(100)), "leader raising their own ceiling leaves the price alone")
	assert.True(t, res.IsWinning)
	assert.Empty(t, e.events.ByKind(bidding.EventOutbid), "nobody was displaced")
}

func TestSubmitBid_BuyNow(t *testing.T) {
	e := newEnv(t)
	a := fixtures.NewAuctionBuilder().WithBuyNow(fixtures.VND(1000)).Build()
	e.auctions.Put(a)
	alice := uuid.New()
	bob := uuid.New()

	_, err := e.submit(t, a.ID, alice, 300)
	require.NoError(t, err)

	res, err := e.submit(t, a.ID, bob, 1000)
	require.NoError(t, err)

	assert.True(t, res.CurrentPrice.Equal(fixtures.VND(1000)))
	assert.True(t, res.IsWinning)
	assert.Equal(t, auction.StatusCompleted, res.Status)

	stored, _ := e.auctions.GetByID(context.Background(), a.ID)
	assert.Equal(t, auction.StatusCompleted, stored.Status)
	require.NotNil(t, stored.WinnerID)
	assert.Equal(t, bob, *stored.WinnerID)
	require.NotNil(t, stored.FinalPrice)
	assert.True(t, stored.FinalPrice.Equal(fixtures.VND(1000)))

	o, ok := e.orders.Orders[a.ID]
	require.True(t, ok, "buy-now creates the pending-payment order")
	assert.Equal(t, bob, o.WinnerID)
	assert.True(t, o.Amount.Equal(fixtures.VND(1000)))

	completed := e.events.ByKind(bidding.EventAuctionCompleted)
	assert.Len(t, completed, 2, "winner and seller are both notified")
	assert.Equal(t, 1, e.metrics.ClosedWinner)
}

func TestSubmitBid_AutoExtend(t *testing.T) {
	e := newEnv(t)
	a := fixtures.NewAuctionBuilder().
		WithEndTime(fixtures.BaseTime.Add(3 * time.Minute)).
		WithAutoExtend(5, 5).
		Build()
	e.auctions.Put(a)

	_, err := e.submit(t, a.ID, uuid.New(), 200)
	require.NoError(t, err)

	stored, _ := e.auctions.GetByID(context.Background(), a.ID)
	assert.Equal(t, fixtures.BaseTime.Add(8*time.Minute), stored.EndTime, "deadline moved by the extension window")
	assert.Len(t, e.events.ByKind(bidding.EventAuctionExtended), 1)
	assert.Equal(t, 1, e.metrics.AutoExtends)
}

func TestSubmitBid_NoExtendOutsideThreshold(t *testing.T) {
	e := newEnv(t)
	a := fixtures.NewAuctionBuilder().
		WithEndTime(fixtures.BaseTime.Add(time.Hour)).
		WithAutoExtend(5, 5).
		Build()
	e.auctions.Put(a)

	_, err := e.submit(t, a.ID, uuid.New(), 200)
	require.NoError(t, err)

	stored, _ := e.auctions.GetByID(context.Background(), a.ID)
	assert.Equal(t, fixtures.BaseTime.Add(time.Hour), stored.EndTime)
	assert.Empty(t, e.events.ByKind(bidding.EventAuctionExtended))
}

func TestSubmitBid_RejectionMetrics(t *testing.T) {
	e := newEnv(t)
	a := fixtures.NewAuctionBuilder().Build()
	e.auctions.Put(a)

	_, err := e.submit(t, a.ID, uuid.New(), 50)
	require.Error(t, err)

	assert.Equal(t, 1, e.metrics.Rejected["INVALID_BID"])
	assert.Zero(t, e.metrics.Accepted)
}

func TestDisqualifyBidder(t *testing.T) {
	e := newEnv(t)
	seller := uuid.New()
	a := fixtures.NewAuctionBuilder().WithSeller(seller).Build()
	e.auctions.Put(a)
	alice := uuid.New()
	bob := uuid.New()

	_, err := e.submit(t, a.ID, alice, 500)
	require.NoError(t, err)
	_, err = e.submit(t, a.ID, bob, 300)
	require.NoError(t, err)

	// Voiding the leader drops the price back to what the survivor
	// justifies.
	res, err := e.svc.DisqualifyBidder(context.Background(), &bidding.DisqualifyRequest{
		AuctionID: a.ID,
		SellerID:  seller,
		BidderID:  alice,
		Reason:    "fraudulent account",
	})
	require.NoError(t, err)

	assert.True(t, res.NewPrice.Equal(fixtures.VND(100)), "lone survivor pays the starting price")
	assert.Equal(t, 1, res.NewBidCount)

	blocked, _ := e.blocks.IsBlocked(context.Background(), a.ID, alice)
	assert.True(t, blocked)

	// The blocked bidder cannot re-enter.
	_, err = e.submit(t, a.ID, alice, 900)
	require.Error(t, err)
	assert.Equal(t, 403, domainerrors.GetStatusCode(err))

	events := e.events.ByKind(bidding.EventBidderDisqualified)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].RecipientID)
	assert.Equal(t, alice, *events[0].RecipientID)
}

func TestDisqualifyBidder_NotSeller(t *testing.T) {
	e := newEnv(t)
	a := fixtures.NewAuctionBuilder().Build()
	e.auctions.Put(a)

	_, err := e.svc.DisqualifyBidder(context.Background(), &bidding.DisqualifyRequest{
		AuctionID: a.ID,
		SellerID:  uuid.New(),
		BidderID:  uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, 403, domainerrors.GetStatusCode(err))
}

func TestDisqualifyBidder_CompletedAuction(t *testing.T) {
	e := newEnv(t)
	seller := uuid.New()
	a := fixtures.NewAuctionBuilder().WithSeller(seller).WithStatus(auction.StatusCompleted).Build()
	e.auctions.Put(a)

	_, err := e.svc.DisqualifyBidder(context.Background(), &bidding.DisqualifyRequest{
		AuctionID: a.ID,
		SellerID:  seller,
		BidderID:  uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, "AUCTION_NOT_ACTIVE"))
}

func TestDisqualifyBidder_Idempotent(t *testing.T) {
	e := newEnv(t)
	seller := uuid.New()
	a := fixtures.NewAuctionBuilder().WithSeller(seller).Build()
	e.auctions.Put(a)
	alice := uuid.New()

	_, err := e.submit(t, a.ID, alice, 500)
	require.NoError(t, err)

	req := &bidding.DisqualifyRequest{AuctionID: a.ID, SellerID: seller, BidderID: alice}

	first, err := e.svc.DisqualifyBidder(context.Background(), req)
	require.NoError(t, err)
	second, err := e.svc.DisqualifyBidder(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.NewBidCount, second.NewBidCount)
	assert.True(t, first.NewPrice.Equal(second.NewPrice))
}

func reopenSetup(t *testing.T) (*env, *auction.Auction, uuid.UUID, uuid.UUID) {
	t.Helper()
	e := newEnv(t)
	seller := uuid.New()
	winner := uuid.New()
	final := fixtures.VND(500)

	a := fixtures.NewAuctionBuilder().WithSeller(seller).Build()
	a.Status = auction.StatusCompleted
	a.WinnerID = &winner
	a.FinalPrice = &final
	a.CurrentPrice = final
	a.BidCount = 2
	e.auctions.Put(a)
	return e, a, seller, winner
}

func TestReopenAuction(t *testing.T) {
	e, a, seller, winner := reopenSetup(t)

	e.ratings.Add(a.ID, &rating.Rating{
		ID:        uuid.New(),
		AuctionID: a.ID,
		RaterID:   seller,
		RateeID:   winner,
		Positive:  false,
		Comment:   rating.CommentWinnerNotPaid,
	})

	newEnd := fixtures.BaseTime.Add(48 * time.Hour)
	require.NoError(t, e.svc.ReopenAuction(context.Background(), a.ID, seller, newEnd))

	stored, _ := e.auctions.GetByID(context.Background(), a.ID)
	assert.Equal(t, auction.StatusActive, stored.Status)
	assert.True(t, stored.CurrentPrice.Equal(stored.StartingPrice))
	assert.Nil(t, stored.WinnerID)
	assert.Zero(t, stored.BidCount)
	assert.Equal(t, newEnd, stored.EndTime)

	ledger, _ := e.bids.ListValidByAuction(context.Background(), a.ID)
	assert.Empty(t, ledger, "reopen clears the ledger")
	assert.NotContains(t, e.orders.Orders, a.ID, "reopen deletes the unpaid order")

	assert.Len(t, e.events.ByKind(bidding.EventAuctionReopened), 1)
}

func TestReopenAuction_NoQualifyingRating(t *testing.T) {
	e, a, seller, winner := reopenSetup(t)

	e.ratings.Add(a.ID, &rating.Rating{
		ID:        uuid.New(),
		AuctionID: a.ID,
		RaterID:   seller,
		RateeID:   winner,
		Positive:  false,
		Comment:   "slow to respond",
	})

	err := e.svc.ReopenAuction(context.Background(), a.ID, seller, fixtures.BaseTime.Add(48*time.Hour))
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, "REOPEN_NOT_ALLOWED"))

	stored, _ := e.auctions.GetByID(context.Background(), a.ID)
	assert.Equal(t, auction.StatusCompleted, stored.Status, "a refused reopen changes nothing")
}

func TestReopenAuction_NotSeller(t *testing.T) {
	e, a, _, _ := reopenSetup(t)

	err := e.svc.ReopenAuction(context.Background(), a.ID, uuid.New(), fixtures.BaseTime.Add(48*time.Hour))
	require.Error(t, err)
	assert.Equal(t, 403, domainerrors.GetStatusCode(err))
}

func TestIsWinningAndCurrentLeader(t *testing.T) {
	e := newEnv(t)
	a := fixtures.NewAuctionBuilder().Build()
	e.auctions.Put(a)
	alice := uuid.New()
	bob := uuid.New()

	leader, err := e.svc.CurrentLeader(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Nil(t, leader, "no bids means no leader")

	_, err = e.submit(t, a.ID, alice, 500)
	require.NoError(t, err)
	_, err = e.submit(t, a.ID, bob, 300)
	require.NoError(t, err)

	winning, err := e.svc.IsWinning(context.Background(), a.ID, alice)
	require.NoError(t, err)
	assert.True(t, winning, "the proxy leader wins even though bob bid later")

	winning, err = e.svc.IsWinning(context.Background(), a.ID, bob)
	require.NoError(t, err)
	assert.False(t, winning)

	leader, err = e.svc.CurrentLeader(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, leader)
	assert.Equal(t, alice, *leader)
}

func TestSubmitBid_TransactionFailureRejects(t *testing.T) {
	e := newEnv(t)
	a := fixtures.NewAuctionBuilder().Build()
	e.auctions.Put(a)

	failing := bidding.NewService(bidding.Deps{
		Auctions: e.auctions,
		Bids:     e.bids,
		Blocks:   e.blocks,
		Orders:   e.orders,
		Ratings:  e.ratings,
		Tx:       &mocks.TxManager{FailWith: assert.AnError},
		Settings: &mocks.Settings{},
		Notifier: e.events,
		Clock:    e.clock,
	})

	_, err := failing.SubmitBid(context.Background(), &bidding.SubmitBidRequest{
		AuctionID: a.ID,
		BidderID:  uuid.New(),
		MaxBid:    fixtures.VND(500),
	})
	require.Error(t, err)
	assert.Equal(t, 500, domainerrors.GetStatusCode(err))
	assert.Empty(t, e.events.Events, "no events when the transaction fails")
}
