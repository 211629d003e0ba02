package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SwipeAction string

const (
	SwipeLike   SwipeAction = "like"
	SwipeReject SwipeAction = "reject"
)

// ParseSwipeAction accepts the client's like/pass vocabulary as well as the
// stored like/reject one.
func ParseSwipeAction(s string) (SwipeAction, bool) {
	switch s {
	case "like", "right":
		return SwipeLike, true
	case "reject", "pass", "left":
		return SwipeReject, true
	}
	return "", false
}

type Swipe struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_swipes_user_listing" json:"user_id"`
	ListingID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_swipes_user_listing" json:"listing_id"`
	Listing   *Listing    `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"listing,omitempty"`
	Action    SwipeAction `gorm:"not null" json:"action"`
	CreatedAt time.Time   `json:"created_at"`
}

func (s *Swipe) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Favorite is a saved listing.
type Favorite struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_favorites_user_listing" json:"user_id"`
	ListingID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_favorites_user_listing" json:"listing_id"`
	Listing   *Listing  `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"listing,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (f *Favorite) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
