package bid

import (
	"github.com/google/uuid"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/auction"
	"github.com/hungtmh/online-auction-system-sub000/internal/domain/values"
)

// Resolution is the outcome of running the proxy protocol for one new
// max bid.
type Resolution struct {
	// NewPrice is the public current price after the bid.
	NewPrice values.Money
	// BidAmount is the price recorded on the caller's ledger entry. It
	// differs from NewPrice only when a buy-now finalization overrides
	// the resolved price.
	BidAmount values.Money
	// LeaderID is the bidder now winning.
	LeaderID uuid.UUID
	// FinalizeNow is set when the bid met the buy-now price and the
	// auction must close immediately.
	FinalizeNow bool
}

// Resolve runs the sealed second-price protocol for a new max bid.
//
// rivals must hold the other bidders' surviving ledger records only: no
// rejected records and none of the caller's own. All preconditions
// (auction active, deadline, blocklist, strict increase over the
// caller's prior max) are the caller's responsibility; Resolve is a pure
// pricing function.
func Resolve(a *auction.Auction, rivals []*Bid, callerID uuid.UUID, callerMax values.Money) Resolution {
	var res Resolution

	standings := ComputeStandings(rivals)
	if len(standings) == 0 {
		res.NewPrice = a.StartingPrice
		res.LeaderID = callerID
	} else {
		top := standings[0]
		if top.MaxAmount.GreaterOrEqual(callerMax) {
			// The incumbent's ceiling covers the challenge: the price is
			// bid up to the challenger's max but the leader holds.
			res.NewPrice = values.Max(callerMax, a.CurrentPrice)
			res.LeaderID = top.BidderID
		} else {
			// The challenger overtakes; second price plus one step,
			// capped at the challenger's own ceiling.
			res.NewPrice = values.Min(callerMax, values.MustAdd(top.MaxAmount, a.StepPrice))
			res.LeaderID = callerID
		}
	}

	res.BidAmount = res.NewPrice

	if a.BuyNowPrice != nil && callerMax.GreaterOrEqual(*a.BuyNowPrice) {
		res.NewPrice = *a.BuyNowPrice
		res.LeaderID = callerID
		res.FinalizeNow = true
	}

	return res
}

// Recalculate derives the price and implied leader from the surviving
// records after a bidder has been voided. It applies the same ranking as
// Resolve: top two distinct bidders set a second price plus step; a lone
// survivor or an empty ledger falls back to the starting price.
func Recalculate(a *auction.Auction, survivors []*Bid) (values.Money, *uuid.UUID) {
	standings := ComputeStandings(survivors)
	switch len(standings) {
	case 0:
		return a.StartingPrice, nil
	case 1:
		leader := standings[0].BidderID
		return a.StartingPrice, &leader
	default:
		leader := standings[0].BidderID
		price := values.Min(standings[0].MaxAmount, values.MustAdd(standings[1].MaxAmount, a.StepPrice))
		return price, &leader
	}
}
