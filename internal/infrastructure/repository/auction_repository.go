package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/auction"
	domainerrors "github.com/hungtmh/online-auction-system-sub000/internal/domain/errors"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/values"
	"github.com/hungtmh/online-auction-system-sub000/internal/service/bidding"
)

// AuctionRepository implements bidding.AuctionRepository on PostgreSQL
type AuctionRepository struct {
	pool *pgxpool.Pool
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(pool *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{pool: pool}
}

var _ bidding.AuctionRepository = (*AuctionRepository)(nil)

const auctionColumns = `
	id, seller_id, title, currency,
	starting_price, step_price, buy_now_price, current_price,
	status, start_time, end_time,
	auto_extend_enabled, auto_extend_minutes, auto_extend_threshold_minutes,
	winner_id, final_price, bid_count, created_at, updated_at`

// GetByID retrieves an auction by ID
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE id = $1
	`, id)

	a, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return a, nil
}

// Create stores a new auction record
func (r *AuctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	var buyNow, finalPrice any
	if a.BuyNowPrice != nil {
		buyNow = a.BuyNowPrice.Amount().String()
	}
	if a.FinalPrice != nil {
		finalPrice = a.FinalPrice.Amount().String()
	}

	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO auctions (`+auctionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`,
		a.ID, a.SellerID, a.Title, a.StartingPrice.Currency(),
		a.StartingPrice.Amount().String(), a.StepPrice.Amount().String(), buyNow, a.CurrentPrice.Amount().String(),
		a.Status.String(), a.StartTime, a.EndTime,
		a.AutoExtendEnabled, a.AutoExtendMinutes, a.AutoExtendThresholdMinutes,
		a.WinnerID, finalPrice, a.BidCount, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}
	return nil
}

// Update persists the auction's mutable projection fields
func (r *AuctionRepository) Update(ctx context.Context, a *auction.Auction) error {
	var finalPrice any
	if a.FinalPrice != nil {
		finalPrice = a.FinalPrice.Amount().String()
	}

	tag, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE auctions SET
			current_price = $2,
			status = $3,
			start_time = $4,
			end_time = $5,
			winner_id = $6,
			final_price = $7,
			bid_count = $8,
			updated_at = $9
		WHERE id = $1
	`,
		a.ID, a.CurrentPrice.Amount().String(), a.Status.String(),
		a.StartTime, a.EndTime, a.WinnerID, finalPrice, a.BidCount, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update auction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.ErrAuctionNotFound
	}
	return nil
}

// ListExpiredActive returns active auctions past their deadline, oldest
// deadline first, capped at limit.
func (r *AuctionRepository) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE status = 'active' AND end_time < $1
		ORDER BY end_time ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

func scanAuction(row pgx.Row) (*auction.Auction, error) {
	var (
		a          auction.Auction
		currency   string
		statusStr  string
		starting   string
		step       string
		current    string
		buyNow     *string
		finalPrice *string
	)

	err := row.Scan(
		&a.ID, &a.SellerID, &a.Title, &currency,
		&starting, &step, &buyNow, &current,
		&statusStr, &a.StartTime, &a.EndTime,
		&a.AutoExtendEnabled, &a.AutoExtendMinutes, &a.AutoExtendThresholdMinutes,
		&a.WinnerID, &finalPrice, &a.BidCount, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if a.StartingPrice, err = values.NewMoneyFromString(starting, currency); err != nil {
		return nil, err
	}
	if a.StepPrice, err = values.NewMoneyFromString(step, currency); err != nil {
		return nil, err
	}
	if a.CurrentPrice, err = values.NewMoneyFromString(current, currency); err != nil {
		return nil, err
	}
	if buyNow != nil {
		m, err := values.NewMoneyFromString(*buyNow, currency)
		if err != nil {
			return nil, err
		}
		a.BuyNowPrice = &m
	}
	if finalPrice != nil {
		m, err := values.NewMoneyFromString(*finalPrice, currency)
		if err != nil {
			return nil, err
		}
		a.FinalPrice = &m
	}
	a.Status = auction.ParseStatus(statusStr)

	return &a, nil
}
