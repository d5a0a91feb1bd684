package auction

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/values"
)

// Status is the lifecycle state of an auction. Auctions are never
// destroyed, only moved between soft states.
type Status int

const (
	StatusPending Status = iota
	StatusActive
	StatusCompleted
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalJSON implements JSON marshaling
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements JSON unmarshaling
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*s = ParseStatus(name)
	return nil
}

// ParseStatus converts a stored status string back to a Status
func ParseStatus(s string) Status {
	switch s {
	case "pending":
		return StatusPending
	case "active":
		return StatusActive
	case "completed":
		return StatusCompleted
	case "cancelled":
		return StatusCancelled
	default:
		return StatusPending
	}
}

// Auction is a timed listing accepting proxy bids. CurrentPrice and
// WinnerID are a cached projection of the bid ledger; the ledger is the
// source of truth and both fields are always recomputable from it.
type Auction struct {
	ID       uuid.UUID `json:"id"`
	SellerID uuid.UUID `json:"seller_id"`
	Title    string    `json:"title"`

	StartingPrice values.Money  `json:"starting_price"`
	StepPrice     values.Money  `json:"step_price"`
	BuyNowPrice   *values.Money `json:"buy_now_price,omitempty"`
	CurrentPrice  values.Money  `json:"current_price"`

	Status    Status    `json:"status"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	AutoExtendEnabled bool `json:"auto_extend_enabled"`
	// Per-auction overrides; zero means "use the marketplace setting".
	AutoExtendMinutes          int `json:"auto_extend_minutes,omitempty"`
	AutoExtendThresholdMinutes int `json:"auto_extend_threshold_minutes,omitempty"`

	WinnerID   *uuid.UUID    `json:"winner_id,omitempty"`
	FinalPrice *values.Money `json:"final_price,omitempty"`
	BidCount   int           `json:"bid_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAuction creates a pending auction with the price projection
// initialized to the starting price.
func NewAuction(sellerID uuid.UUID, title string, startingPrice, stepPrice values.Money, start, end time.Time) (*Auction, error) {
	a := &Auction{
		ID:            uuid.New(),
		SellerID:      sellerID,
		Title:         title,
		StartingPrice: startingPrice,
		StepPrice:     stepPrice,
		CurrentPrice:  startingPrice,
		Status:        StatusPending,
		StartTime:     start,
		EndTime:       end,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := a.ValidateParams(0); err != nil {
		return nil, err
	}
	return a, nil
}

// ValidateParams checks the pricing and schedule invariants.
// minStepPercent, when positive, requires the step price to be at least
// that percentage of the starting price.
func (a *Auction) ValidateParams(minStepPercent int64) error {
	if !a.StartingPrice.IsPositive() {
		return fmt.Errorf("starting price must be positive")
	}
	if !a.StepPrice.IsPositive() {
		return fmt.Errorf("step price must be positive")
	}
	if minStepPercent > 0 && a.StepPrice.LessThan(a.StartingPrice.Percent(minStepPercent)) {
		return fmt.Errorf("step price must be at least %d%% of the starting price", minStepPercent)
	}
	if a.BuyNowPrice != nil && !a.BuyNowPrice.GreaterThan(a.StartingPrice) {
		return fmt.Errorf("buy now price must exceed the starting price")
	}
	if !a.StartTime.Before(a.EndTime) {
		return fmt.Errorf("start time must be before end time")
	}
	return nil
}

// Activate moves a pending auction to active (moderation approval).
func (a *Auction) Activate() error {
	if a.Status != StatusPending {
		return fmt.Errorf("cannot activate auction in status %s", a.Status)
	}
	a.Status = StatusActive
	a.UpdatedAt = time.Now()
	return nil
}

// IsActive reports whether the auction accepts bids at the given instant
func (a *Auction) IsActive(now time.Time) bool {
	return a.Status == StatusActive && now.Before(a.EndTime)
}

// Finalize completes the auction. winnerID and finalPrice are nil when
// the auction closed without a single valid bid. Idempotent: finalizing
// an already completed auction is a no-op.
func (a *Auction) Finalize(winnerID *uuid.UUID, finalPrice *values.Money, closedAt time.Time) {
	if a.Status == StatusCompleted {
		return
	}
	a.Status = StatusCompleted
	a.WinnerID = winnerID
	a.FinalPrice = finalPrice
	if closedAt.Before(a.EndTime) {
		a.EndTime = closedAt
	}
	a.UpdatedAt = closedAt
}

// Reopen resets the auction for a fresh bidding round: bid count and
// price projection return to their initial values, the winner is cleared
// and a new schedule is installed. The caller is responsible for clearing
// the ledger and derived order records in the same transaction.
func (a *Auction) Reopen(newEndTime time.Time, now time.Time) error {
	if !now.Before(newEndTime) {
		return fmt.Errorf("new end time must be in the future")
	}
	a.Status = StatusActive
	a.BidCount = 0
	a.CurrentPrice = a.StartingPrice
	a.WinnerID = nil
	a.FinalPrice = nil
	a.StartTime = now
	a.EndTime = newEndTime
	a.UpdatedAt = now
	return nil
}

// Extend pushes the deadline back by the given number of minutes
func (a *Auction) Extend(minutes int) {
	a.EndTime = a.EndTime.Add(time.Duration(minutes) * time.Minute)
	a.UpdatedAt = time.Now()
}
