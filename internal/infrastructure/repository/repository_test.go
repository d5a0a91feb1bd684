package repository

import (
	"context"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/auction"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/bid"
	domainerrors "github.com/hungtmh/online-auction-system-sub000/internal/domain/errors"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/order"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/values"
	"github.com/hungtmh/online-auction-system-sub000/internal/testutil/containers"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pg, err := containers.NewPostgresContainer(ctx)
	if err != nil {
		t.Skipf("no docker available: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	m, err := migrate.New("file://../../../migrations", pg.ConnectionString)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	m.Close()

	pool, err := pgxpool.New(ctx, pg.ConnectionString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func vnd(t *testing.T, amount int64) values.Money {
	t.Helper()
	m, err := values.NewMoneyFromFloat(float64(amount), values.VND)
	require.NoError(t, err)
	return m
}

func storedAuction(t *testing.T, pool *pgxpool.Pool) (*AuctionRepository, *auction.Auction) {
	t.Helper()
	repo := NewAuctionRepository(pool)
	a, err := auction.NewAuction(uuid.New(), "test item", vnd(t, 100), vnd(t, 10),
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, a.Activate())
	require.NoError(t, repo.Create(context.Background(), a))
	return repo, a
}

func TestAuctionRepository_RoundTrip(t *testing.T) {
	pool := setupPool(t)
	repo, a := storedAuction(t, pool)
	ctx := context.Background()

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, auction.StatusActive, got.Status)
	assert.True(t, got.StartingPrice.Equal(vnd(t, 100)))
	assert.True(t, got.CurrentPrice.Equal(vnd(t, 100)))
	assert.Nil(t, got.BuyNowPrice)
	assert.Nil(t, got.WinnerID)

	got.CurrentPrice = vnd(t, 310)
	got.BidCount = 3
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, again.CurrentPrice.Equal(vnd(t, 310)))
	assert.Equal(t, 3, again.BidCount)
}

func TestAuctionRepository_NotFound(t *testing.T) {
	pool := setupPool(t)
	repo := NewAuctionRepository(pool)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrAuctionNotFound)
}

func TestAuctionRepository_ListExpiredActive(t *testing.T) {
	pool := setupPool(t)
	repo := NewAuctionRepository(pool)
	ctx := context.Background()

	mk := func(end time.Time, status auction.Status) *auction.Auction {
		a, err := auction.NewAuction(uuid.New(), "item", vnd(t, 100), vnd(t, 10),
			end.Add(-2*time.Hour), end)
		require.NoError(t, err)
		a.Status = status
		require.NoError(t, repo.Create(ctx, a))
		return a
	}

	now := time.Now()
	oldest := mk(now.Add(-2*time.Hour), auction.StatusActive)
	newer := mk(now.Add(-time.Hour), auction.StatusActive)
	mk(now.Add(time.Hour), auction.StatusActive)      // not expired
	mk(now.Add(-time.Hour), auction.StatusCompleted)  // already closed

	got, err := repo.ListExpiredActive(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, oldest.ID, got[0].ID, "oldest deadline first")
	assert.Equal(t, newer.ID, got[1].ID)

	capped, err := repo.ListExpiredActive(ctx, now, 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)
}

func TestBidRepository(t *testing.T) {
	pool := setupPool(t)
	_, a := storedAuction(t, pool)
	repo := NewBidRepository(pool)
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()
	base := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.Append(ctx, bid.New(a.ID, alice, vnd(t, 500), vnd(t, 100), base)))
	require.NoError(t, repo.Append(ctx, bid.New(a.ID, bob, vnd(t, 600), vnd(t, 310), base.Add(time.Second))))
	require.NoError(t, repo.Append(ctx, bid.New(a.ID, alice, vnd(t, 600), vnd(t, 310), base.Add(2*time.Second))))

	ledger, err := repo.ListValidByAuction(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, ledger, 3)
	assert.Equal(t, alice, ledger[0].BidderID, "insertion order is preserved")
	assert.True(t, ledger[0].MaxAmount.Equal(vnd(t, 500)))

	n, err := repo.RejectAllByBidder(ctx, a.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	survivors, err := repo.ListValidByAuction(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, survivors, 1)
	assert.Equal(t, bob, survivors[0].BidderID)

	// Rejecting again flips nothing.
	n, err = repo.RejectAllByBidder(ctx, a.ID, alice)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repo.DeleteByAuction(ctx, a.ID))
	empty, err := repo.ListValidByAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBlockListRepository(t *testing.T) {
	pool := setupPool(t)
	_, a := storedAuction(t, pool)
	repo := NewBlockListRepository(pool)
	ctx := context.Background()
	bidder := uuid.New()

	blocked, err := repo.IsBlocked(ctx, a.ID, bidder)
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, repo.Block(ctx, a.ID, bidder))
	require.NoError(t, repo.Block(ctx, a.ID, bidder), "blocking twice is a no-op")

	blocked, err = repo.IsBlocked(ctx, a.ID, bidder)
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestOrderRepository_CreateIfAbsent(t *testing.T) {
	pool := setupPool(t)
	_, a := storedAuction(t, pool)
	repo := NewOrderRepository(pool)
	ctx := context.Background()
	winner := uuid.New()

	first := order.New(a.ID, winner, a.SellerID, vnd(t, 500))
	require.NoError(t, repo.CreateIfAbsent(ctx, first))

	// A second finalization pass must not create a duplicate.
	second := order.New(a.ID, winner, a.SellerID, vnd(t, 999))
	require.NoError(t, repo.CreateIfAbsent(ctx, second))

	var count int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE auction_id = $1`, a.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var amount string
	err = pool.QueryRow(ctx, `SELECT amount FROM orders WHERE auction_id = $1`, a.ID).Scan(&amount)
	require.NoError(t, err)
	got, err := values.NewMoneyFromString(amount, values.VND)
	require.NoError(t, err)
	assert.True(t, got.Equal(vnd(t, 500)), "the first order wins")

	require.NoError(t, repo.DeleteByAuction(ctx, a.ID))
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE auction_id = $1`, a.ID).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRatingRepository_ListByAuction(t *testing.T) {
	pool := setupPool(t)
	_, a := storedAuction(t, pool)
	repo := NewRatingRepository(pool)
	ctx := context.Background()

	winner := uuid.New()
	base := time.Now().UTC().Truncate(time.Microsecond)
	insert := func(raterID, rateeID uuid.UUID, positive bool, comment string, at time.Time) {
		_, err := pool.Exec(ctx, `
			INSERT INTO ratings (id, auction_id, rater_id, ratee_id, positive, comment, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.New(), a.ID, raterID, rateeID, positive, comment, at)
		require.NoError(t, err)
	}
	insert(a.SellerID, winner, true, "fast payment", base)
	insert(winner, a.SellerID, false, "Người thắng không thanh toán", base.Add(time.Second))

	got, err := repo.ListByAuction(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.SellerID, got[0].RaterID, "oldest rating first")
	assert.True(t, got[0].Positive)
	assert.False(t, got[1].Positive)
	assert.Equal(t, "Người thắng không thanh toán", got[1].Comment)
}

func TestTxManager_RollsBackTogether(t *testing.T) {
	pool := setupPool(t)
	auctions, a := storedAuction(t, pool)
	bids := NewBidRepository(pool)
	tx := NewTxManager(pool)
	ctx := context.Background()

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := bids.Append(ctx, bid.New(a.ID, uuid.New(), vnd(t, 500), vnd(t, 100), time.Now())); err != nil {
			return err
		}
		a.BidCount = 1
		if err := auctions.Update(ctx, a); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	ledger, err := bids.ListValidByAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, ledger, "ledger append rolled back")

	stored, err := auctions.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.BidCount, "projection update rolled back with it")
}

func TestTxManager_Commits(t *testing.T) {
	pool := setupPool(t)
	auctions, a := storedAuction(t, pool)
	bids := NewBidRepository(pool)
	tx := NewTxManager(pool)
	ctx := context.Background()

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := bids.Append(ctx, bid.New(a.ID, uuid.New(), vnd(t, 500), vnd(t, 100), time.Now())); err != nil {
			return err
		}
		a.BidCount = 1
		return auctions.Update(ctx, a)
	})
	require.NoError(t, err)

	ledger, err := bids.ListValidByAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, ledger, 1)
}
