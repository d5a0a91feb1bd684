package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/bid"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/values"
	"github.com/hungtmh/online-auction-system-sub000/internal/service/bidding"
)

// BidRepository implements bidding.BidRepository on PostgreSQL. The
// bids table is append-only; disqualification flips is_rejected rather
// than deleting rows.
type BidRepository struct {
	pool *pgxpool.Pool
}

// NewBidRepository creates a new bid repository
func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

var _ bidding.BidRepository = (*BidRepository)(nil)

// Append inserts one ledger record
func (r *BidRepository) Append(ctx context.Context, b *bid.Bid) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO bids (id, auction_id, bidder_id, max_amount, amount, currency, is_rejected, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		b.ID, b.AuctionID, b.BidderID,
		b.MaxAmount.Amount().String(), b.Amount.Amount().String(), b.MaxAmount.Currency(),
		b.IsRejected, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append bid: %w", err)
	}
	return nil
}

// ListValidByAuction returns the non-rejected ledger in insertion order
func (r *BidRepository) ListValidByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT id, auction_id, bidder_id, max_amount, amount, currency, is_rejected, created_at
		FROM bids
		WHERE auction_id = $1 AND is_rejected = FALSE
		ORDER BY created_at ASC, id ASC
	`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		var (
			b         bid.Bid
			maxAmount string
			amount    string
			currency  string
		)
		err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &maxAmount, &amount, &currency, &b.IsRejected, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		if b.MaxAmount, err = values.NewMoneyFromString(maxAmount, currency); err != nil {
			return nil, err
		}
		if b.Amount, err = values.NewMoneyFromString(amount, currency); err != nil {
			return nil, err
		}
		bids = append(bids, &b)
	}
	return bids, rows.Err()
}

// RejectAllByBidder flags every live record by the bidder and reports
// how many rows were flipped
func (r *BidRepository) RejectAllByBidder(ctx context.Context, auctionID, bidderID uuid.UUID) (int, error) {
	tag, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE bids
		SET is_rejected = TRUE
		WHERE auction_id = $1 AND bidder_id = $2 AND is_rejected = FALSE
	`, auctionID, bidderID)
	if err != nil {
		return 0, fmt.Errorf("failed to reject bids: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteByAuction clears the ledger for a reopened auction
func (r *BidRepository) DeleteByAuction(ctx context.Context, auctionID uuid.UUID) error {
	_, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM bids WHERE auction_id = $1`, auctionID)
	if err != nil {
		return fmt.Errorf("failed to delete bids: %w", err)
	}
	return nil
}
