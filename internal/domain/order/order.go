package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/values"
)

// Status tracks payment/shipping progress. The core only ever creates
// orders in StatusPendingPayment; later transitions belong to the order
// tracking collaborator.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
	StatusShipped        Status = "shipped"
	StatusCancelled      Status = "cancelled"
)

// Order is the pending-payment record created when an auction finalizes
// with a winner. At most one order exists per auction.
type Order struct {
	ID        uuid.UUID    `json:"id"`
	AuctionID uuid.UUID    `json:"auction_id"`
	WinnerID  uuid.UUID    `json:"winner_id"`
	SellerID  uuid.UUID    `json:"seller_id"`
	Amount    values.Money `json:"amount"`
	Status    Status       `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// New creates a pending-payment order for a finalized auction
func New(auctionID, winnerID, sellerID uuid.UUID, amount values.Money) *Order {
	now := time.Now()
	return &Order{
		ID:        uuid.New(),
		AuctionID: auctionID,
		WinnerID:  winnerID,
		SellerID:  sellerID,
		Amount:    amount,
		Status:    StatusPendingPayment,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
