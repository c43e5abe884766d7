package domain

import (
	"errors"
	"testing"
)

func TestThread_CheckParties(t *testing.T) {
	th := &Thread{GuestID: 1, HostID: 2}
	tests := []struct {
		name      string
		sender    int64
		recipient int64
		wantErr   bool
	}{
		{"guest to host", 1, 2, false},
		{"host to guest", 2, 1, false},
		{"outsider sends", 3, 2, true},
		{"outsider receives", 1, 3, true},
		{"to self", 1, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := th.CheckParties(tt.sender, tt.recipient)
			if tt.wantErr != errors.Is(err, ErrNotParticipant) {
				t.Fatalf("CheckParties(%d,%d) = %v", tt.sender, tt.recipient, err)
			}
		})
	}
}

func TestThreadKey_NullPropertyMatchesOnlyNull(t *testing.T) {
	pid := int64(5)
	general := &Thread{GuestID: 1, HostID: 2}
	scoped := &Thread{PropertyID: &pid, GuestID: 1, HostID: 2}

	nullKey := ThreadKey{GuestID: 1, HostID: 2}
	if !nullKey.Matches(general) || nullKey.Matches(scoped) {
		t.Fatal("null key must match only the general thread")
	}
	other := int64(5)
	propKey := ThreadKey{PropertyID: &other, GuestID: 1, HostID: 2}
	if propKey.Matches(general) || !propKey.Matches(scoped) {
		t.Fatal("property key must match only the scoped thread")
	}
}
