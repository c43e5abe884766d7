package service

import (
	"context"
	"errors"
	"testing"

	"github.com/diagnosis/stays/services/stays/internal/domain"
)

func TestCompareList_Cap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i <= domain.MaxCompareItems; i++ {
		ids = append(ids, f.property(t, "100", false, nil).ID)
	}
	for _, id := range ids[:domain.MaxCompareItems] {
		if err := f.lists.Add(ctx, domain.CompareList, f.guest.ID, id); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.lists.Add(ctx, domain.CompareList, f.guest.ID, ids[0]); err != nil {
		t.Fatalf("re-adding a present item must succeed: %v", err)
	}
	if err := f.lists.Add(ctx, domain.CompareList, f.guest.ID, ids[domain.MaxCompareItems]); !errors.Is(err, domain.ErrListFull) {
		t.Fatalf("expected ErrListFull, got %v", err)
	}

	if err := f.lists.Add(ctx, domain.Wishlist, f.guest.ID, ids[domain.MaxCompareItems]); err != nil {
		t.Fatalf("wishlist is uncapped: %v", err)
	}

	if err := f.lists.Remove(ctx, domain.CompareList, f.guest.ID, ids[0]); err != nil {
		t.Fatal(err)
	}
	if err := f.lists.Remove(ctx, domain.CompareList, f.guest.ID, ids[0]); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	items, _ := f.lists.List(ctx, domain.CompareList, f.guest.ID)
	if len(items) != domain.MaxCompareItems-1 {
		t.Fatalf("expected %d items, got %d", domain.MaxCompareItems-1, len(items))
	}
	if err := f.lists.Add(ctx, domain.Wishlist, f.guest.ID, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
