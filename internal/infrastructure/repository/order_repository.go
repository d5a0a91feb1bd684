package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/order"
	"github.com/hungtmh/online-auction-system-sub000/internal/service/bidding"
)

// OrderRepository implements bidding.OrderRepository on PostgreSQL
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

var _ bidding.OrderRepository = (*OrderRepository)(nil)

// CreateIfAbsent inserts the order unless the auction already has one.
// A unique index on auction_id backs the idempotency.
func (r *OrderRepository) CreateIfAbsent(ctx context.Context, o *order.Order) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO orders (id, auction_id, winner_id, seller_id, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (auction_id) DO NOTHING
	`,
		o.ID, o.AuctionID, o.WinnerID, o.SellerID,
		o.Amount.Amount().String(), o.Amount.Currency(),
		string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// DeleteByAuction removes the auction's order; used only by reopen
func (r *OrderRepository) DeleteByAuction(ctx context.Context, auctionID uuid.UUID) error {
	_, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM orders WHERE auction_id = $1`, auctionID)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}
