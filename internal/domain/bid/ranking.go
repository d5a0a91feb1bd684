package bid

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/values"
)

// Standing aggregates one bidder's surviving ledger records: the highest
// max they ever committed to and the earliest record at which they
// reached it.
type Standing struct {
	BidderID  uuid.UUID
	MaxAmount values.Money
	ReachedAt time.Time
}

// ComputeStandings collapses the ledger into one Standing per bidder and
// ranks them by (max amount desc, time at max asc). Rejected records are
// ignored.
//
// This is the single ranking rule in the system. The live resolver, the
// disqualification recalculation, the closer's winner selection and the
// status queries all consume it; a second implementation anywhere would
// let the live price and the close-time winner drift apart.
func ComputeStandings(bids []*Bid) []Standing {
	byBidder := make(map[uuid.UUID]*Standing)
	for _, b := range bids {
		if b.IsRejected {
			continue
		}
		s, ok := byBidder[b.BidderID]
		if !ok {
			byBidder[b.BidderID] = &Standing{
				BidderID:  b.BidderID,
				MaxAmount: b.MaxAmount,
				ReachedAt: b.CreatedAt,
			}
			continue
		}
		switch b.MaxAmount.Compare(s.MaxAmount) {
		case 1:
			s.MaxAmount = b.MaxAmount
			s.ReachedAt = b.CreatedAt
		case 0:
			if b.CreatedAt.Before(s.ReachedAt) {
				s.ReachedAt = b.CreatedAt
			}
		}
	}

	standings := make([]Standing, 0, len(byBidder))
	for _, s := range byBidder {
		standings = append(standings, *s)
	}

	sort.Slice(standings, func(i, j int) bool {
		cmp := standings[i].MaxAmount.Compare(standings[j].MaxAmount)
		if cmp != 0 {
			return cmp > 0
		}
		return standings[i].ReachedAt.Before(standings[j].ReachedAt)
	})

	return standings
}

// Leader returns the top-ranked bidder, or nil when no valid bids exist
func Leader(bids []*Bid) *Standing {
	standings := ComputeStandings(bids)
	if len(standings) == 0 {
		return nil
	}
	return &standings[0]
}

// HighestMax returns a bidder's best surviving max bid for the auction,
// or nil when the bidder has no valid records.
func HighestMax(bids []*Bid, bidderID uuid.UUID) *values.Money {
	var best *values.Money
	for _, b := range bids {
		if b.IsRejected || b.BidderID != bidderID {
			continue
		}
		if best == nil || b.MaxAmount.GreaterThan(*best) {
			m := b.MaxAmount
			best = &m
		}
	}
	return best
}

// ExcludeBidder filters out one bidder's records, leaving the rivals
func ExcludeBidder(bids []*Bid, bidderID uuid.UUID) []*Bid {
	out := make([]*Bid, 0, len(bids))
	for _, b := range bids {
		if b.BidderID != bidderID {
			out = append(out, b)
		}
	}
	return out
}
