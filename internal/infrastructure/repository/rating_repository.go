package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/rating"
	"github.com/hungtmh/online-auction-system-sub000/internal/service/bidding"
)

// RatingRepository implements bidding.RatingRepository on PostgreSQL
type RatingRepository struct {
	pool *pgxpool.Pool
}

// NewRatingRepository creates a new rating repository
func NewRatingRepository(pool *pgxpool.Pool) *RatingRepository {
	return &RatingRepository{pool: pool}
}

var _ bidding.RatingRepository = (*RatingRepository)(nil)

// ListByAuction returns the auction's rating history in creation order
func (r *RatingRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*rating.Rating, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT id, auction_id, rater_id, ratee_id, positive, comment, created_at
		FROM ratings
		WHERE auction_id = $1
		ORDER BY created_at ASC
	`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer rows.Close()

	var ratings []*rating.Rating
	for rows.Next() {
		var rec rating.Rating
		err := rows.Scan(&rec.ID, &rec.AuctionID, &rec.RaterID, &rec.RateeID, &rec.Positive, &rec.Comment, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, &rec)
	}
	return ratings, rows.Err()
}
