package rating

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestQualifiesForReopen(t *testing.T) {
	seller := uuid.New()
	winner := uuid.New()
	auctionID := uuid.New()

	sellerRating := func(positive bool, comment string) *Rating {
		return &Rating{
			ID:        uuid.New(),
			AuctionID: auctionID,
			RaterID:   seller,
			RateeID:   winner,
			Positive:  positive,
			Comment:   comment,
		}
	}

	tests := []struct {
		name    string
		history []*Rating
		want    bool
	}{
		{
			name:    "canonical non-payment rating qualifies",
			history: []*Rating{sellerRating(false, CommentWinnerNotPaid)},
			want:    true,
		},
		{
			name:    "no history",
			history: nil,
			want:    false,
		},
		{
			name:    "positive rating",
			history: []*Rating{sellerRating(true, CommentWinnerNotPaid)},
			want:    false,
		},
		{
			name:    "free-form comment",
			history: []*Rating{sellerRating(false, "never paid me")},
			want:    false,
		},
		{
			name: "more than one rating from the seller",
			history: []*Rating{
				sellerRating(false, CommentWinnerNotPaid),
				sellerRating(false, CommentWinnerNotPaid),
			},
			want: false,
		},
		{
			name: "qualifying rating from someone else",
			history: []*Rating{{
				ID:        uuid.New(),
				AuctionID: auctionID,
				RaterID:   uuid.New(),
				RateeID:   winner,
				Positive:  false,
				Comment:   CommentWinnerNotPaid,
			}},
			want: false,
		},
		{
			name: "winner's own rating does not interfere",
			history: []*Rating{
				sellerRating(false, CommentWinnerNotPaid),
				{
					ID:        uuid.New(),
					AuctionID: auctionID,
					RaterID:   winner,
					RateeID:   seller,
					Positive:  false,
					Comment:   "bad seller",
				},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QualifiesForReopen(tt.history, seller))
		})
	}
}
