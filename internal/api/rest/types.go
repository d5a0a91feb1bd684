package rest

import (
	"time"

	"github.com/google/uuid"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/auction"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/values"
)

// PlaceBidRequest is the body of POST /api/v1/auctions/{id}/bids. The
// max amount is a decimal string to avoid float precision loss.
type PlaceBidRequest struct {
	MaxAmount string `json:"max_amount" validate:"required"`
	Currency  string `json:"currency" validate:"omitempty,len=3"`
}

// DisqualifyBidderRequest is the body of POST /api/v1/auctions/{id}/disqualify
type DisqualifyBidderRequest struct {
	BidderID uuid.UUID `json:"bidder_id" validate:"required"`
	Reason   string    `json:"reason" validate:"omitempty,max=500"`
}

// ReopenAuctionRequest is the body of POST /api/v1/auctions/{id}/reopen
type ReopenAuctionRequest struct {
	NewEndTime time.Time `json:"new_end_time" validate:"required"`
}

// AuctionResponse is the public auction projection
type AuctionResponse struct {
	ID           uuid.UUID     `json:"id"`
	SellerID     uuid.UUID     `json:"seller_id"`
	Title        string        `json:"title"`
	StartingPrice values.Money `json:"starting_price"`
	StepPrice    values.Money  `json:"step_price"`
	BuyNowPrice  *values.Money `json:"buy_now_price,omitempty"`
	CurrentPrice values.Money  `json:"current_price"`
	Status       string        `json:"status"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	WinnerID     *uuid.UUID    `json:"winner_id,omitempty"`
	FinalPrice   *values.Money `json:"final_price,omitempty"`
	BidCount     int           `json:"bid_count"`
}

// WinningResponse answers GET /api/v1/auctions/{id}/winning
type WinningResponse struct {
	IsWinning bool       `json:"is_winning"`
	LeaderID  *uuid.UUID `json:"leader_id,omitempty"`
}

// ErrorResponse is the error body shared by every endpoint
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toAuctionResponse(a *auction.Auction) *AuctionResponse {
	return &AuctionResponse{
		ID:            a.ID,
		SellerID:      a.SellerID,
		Title:         a.Title,
		StartingPrice: a.StartingPrice,
		StepPrice:     a.StepPrice,
		BuyNowPrice:   a.BuyNowPrice,
		CurrentPrice:  a.CurrentPrice,
		Status:        a.Status.String(),
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		WinnerID:      a.WinnerID,
		FinalPrice:    a.FinalPrice,
		BidCount:      a.BidCount,
	}
}
