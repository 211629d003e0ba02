package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListingStatusTransitions(t *testing.T) {
	assert.True(t, ListingAvailable.CanTransition(ListingInactive))
	assert.True(t, ListingInactive.CanTransition(ListingAvailable))
	assert.True(t, ListingClaimed.CanTransition(ListingClaimed))
	assert.False(t, ListingClaimed.CanTransition(ListingAvailable))
	assert.False(t, ListingAvailable.CanTransition(ListingClaimed), "claimed is only reachable through a claim")
}

func TestMatchStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to MatchStatus
		want     bool
	}{
		{MatchPending, MatchMatched, true},
		{MatchPending, MatchCancelled, true},
		{MatchMatched, MatchCancelled, true},
		{MatchMatched, MatchPending, false},
		{MatchCancelled, MatchMatched, false},
		{MatchCancelled, MatchCancelled, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
	assert.False(t, MatchStatus("accepted").Valid())
}

func TestClaimAndDonationAreForwardOnly(t *testing.T) {
	assert.True(t, ClaimClaimed.CanTransition(ClaimPickupArranged))
	assert.True(t, ClaimClaimed.CanTransition(ClaimReceived))
	assert.False(t, ClaimReceived.CanTransition(ClaimClaimed))
	assert.False(t, ClaimPickupArranged.CanTransition(ClaimClaimed))

	assert.True(t, DonationPledged.CanTransition(DonationDelivered))
	assert.True(t, DonationDelivered.CanTransition(DonationReceived))
	assert.False(t, DonationPledged.CanTransition(DonationReceived), "received needs delivery first")
	assert.False(t, DonationReceived.CanTransition(DonationPledged))
}

func TestDriveSetProgress(t *testing.T) {
	d := &NGODrive{Status: DriveActive}

	d.SetProgress(-5)
	assert.Equal(t, 0, d.Progress)
	assert.Equal(t, DriveActive, d.Status)

	d.SetProgress(65)
	assert.Equal(t, 65, d.Progress)

	d.SetProgress(140)
	assert.Equal(t, 100, d.Progress)
	assert.Equal(t, DriveCompleted, d.Status)
}

func TestParseSwipeAction(t *testing.T) {
	for in, want := range map[string]SwipeAction{
		"like":   SwipeLike,
		"right":  SwipeLike,
		"pass":   SwipeReject,
		"reject": SwipeReject,
		"left":   SwipeReject,
	} {
		got, ok := ParseSwipeAction(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseSwipeAction("superlike")
	assert.False(t, ok)
}

func TestTagIndex(t *testing.T) {
	assert.Equal(t, "", TagIndex(nil))
	assert.Equal(t, "\ncharity\narts & crafts\n", TagIndex([]string{"Charity", "Arts & Crafts"}))
}
