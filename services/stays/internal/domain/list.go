package domain

import "time"

type ListKind string

const (
	Wishlist    ListKind = "wishlist"
	CompareList ListKind = "compare"
)

// MaxCompareItems caps the compare-list.
const MaxCompareItems = 4

func (k ListKind) Cap() int {
	if k == CompareList {
		return MaxCompareItems
	}
	return 0
}

type ListItem struct {
	PropertyID int64     `json:"property_id"`
	AddedAt    time.Time `json:"added_at"`
	Property   *Property `json:"property,omitempty"`
}
