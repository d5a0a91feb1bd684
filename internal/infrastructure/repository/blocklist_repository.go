package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hungtmh/online-auction-system-sub000/internal/service/bidding"
)

// BlockListRepository implements bidding.BlockListRepository on PostgreSQL
type BlockListRepository struct {
	pool *pgxpool.Pool
}

// NewBlockListRepository creates a new block list repository
func NewBlockListRepository(pool *pgxpool.Pool) *BlockListRepository {
	return &BlockListRepository{pool: pool}
}

var _ bidding.BlockListRepository = (*BlockListRepository)(nil)

// IsBlocked reports whether the bidder is blocked from the auction
func (r *BlockListRepository) IsBlocked(ctx context.Context, auctionID, bidderID uuid.UUID) (bool, error) {
	var blocked bool
	err := db(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM auction_blocks WHERE auction_id = $1 AND bidder_id = $2
		)
	`, auctionID, bidderID).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("failed to check block list: %w", err)
	}
	return blocked, nil
}

// Block records the block; repeating the call is a no-op
func (r *BlockListRepository) Block(ctx context.Context, auctionID, bidderID uuid.UUID) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO auction_blocks (auction_id, bidder_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (auction_id, bidder_id) DO NOTHING
	`, auctionID, bidderID)
	if err != nil {
		return fmt.Errorf("failed to block bidder: %w", err)
	}
	return nil
}
