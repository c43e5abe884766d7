package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID         int64     `json:"id"`
	BookingID  int64     `json:"booking_id"`
	PropertyID int64     `json:"property_id"`
	ReviewerID int64     `json:"reviewer_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	IsFlagged  bool      `json:"is_flagged"`
	CreatedAt  time.Time `json:"created_at"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (r *ReviewRequest) Validate() error {
	if r.Rating < MinRating || r.Rating > MaxRating {
		return ErrInvalidRating
	}
	r.Comment = strings.TrimSpace(r.Comment)
	return nil
}

type ReviewSummary struct {
	PropertyID int64           `json:"property_id"`
	Count      int             `json:"count"`
	Average    decimal.Decimal `json:"average_rating"`
	Reviews    []Review        `json:"reviews"`
}

// Summarize averages ratings to two decimals.
func Summarize(propertyID int64, reviews []Review) ReviewSummary {
	s := ReviewSummary{PropertyID: propertyID, Count: len(reviews), Reviews: reviews, Average: decimal.Zero}
	if len(reviews) == 0 {
		return s
	}
	var sum int64
	for _, r := range reviews {
		sum += int64(r.Rating)
	}
	s.Average = decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(int64(len(reviews))), 2)
	return s
}
