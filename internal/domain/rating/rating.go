package rating

import (
	"time"

	"github.com/google/uuid"
)

// CommentWinnerNotPaid is the canonical seller comment for a winner who
// never completed payment. It is the only rating history that qualifies
// an auction for reopening.
const CommentWinnerNotPaid = "Winner did not pay"

// Rating is a read model over the rating collaborator's records; the
// core only consults it for the reopen precondition.
type Rating struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	RaterID   uuid.UUID `json:"rater_id"`
	RateeID   uuid.UUID `json:"ratee_id"`
	Positive  bool      `json:"positive"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// QualifiesForReopen reports whether the auction's rating history from
// the given seller permits a reopen: exactly one rating, negative, with
// the canonical non-payment comment. Any other history (none, several,
// positive, or a free-form comment) disqualifies.
func QualifiesForReopen(history []*Rating, sellerID uuid.UUID) bool {
	var fromSeller []*Rating
	for _, r := range history {
		if r.RaterID == sellerID {
			fromSeller = append(fromSeller, r)
		}
	}
	if len(fromSeller) != 1 {
		return false
	}
	r := fromSeller[0]
	return !r.Positive && r.Comment == CommentWinnerNotPaid
}
