package models

import "errors"

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// Karma awarded on completed exchanges.
const (
	KarmaClaimReceived    = 10
	KarmaDonationReceived = 5
	KarmaMatchAccepted    = 2
)

// transitions lists the forward moves allowed from each status. Staying on
// the same status is always allowed and treated as a no-op by callers.
type transitions[S ~string] map[S][]S

func (t transitions[S]) allows(from, to S) bool {
	if from == to {
		return true
	}
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// All returns every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Listing{},
		&Match{},
		&Claim{},
		&Swipe{},
		&Favorite{},
		&NGODrive{},
		&Donation{},
		&ForumPost{},
		&Comment{},
		&ChatThread{},
		&ThreadParticipant{},
		&Message{},
	}
}
