package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClaimStatus string

const (
	ClaimClaimed        ClaimStatus = "claimed"
	ClaimPickupArranged ClaimStatus = "pickup_arranged"
	ClaimReceived       ClaimStatus = "received"
)

// Claim is an NGO's request to take a donated listing.
type Claim struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	NGOID     uuid.UUID   `gorm:"column:ngo_id;type:uuid;index;not null" json:"ngo_id"`
	NGO       *User       `gorm:"foreignKey:NGOID" json:"ngo,omitempty"`
	ListingID uuid.UUID   `gorm:"type:uuid;index;not null" json:"listing_id"`
	Listing   *Listing    `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"listing,omitempty"`
	Message   string      `json:"message,omitempty"`
	Status    ClaimStatus `gorm:"not null" json:"status"`
	ClaimedAt time.Time   `gorm:"autoCreateTime" json:"claimed_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (c *Claim) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = ClaimClaimed
	}
	return nil
}

var claimTransitions = transitions[ClaimStatus]{
	ClaimClaimed:        {ClaimPickupArranged, ClaimReceived},
	ClaimPickupArranged: {ClaimReceived},
}

func (s ClaimStatus) Valid() bool {
	return s == ClaimClaimed || s == ClaimPickupArranged || s == ClaimReceived
}

func (s ClaimStatus) CanTransition(next ClaimStatus) bool {
	return claimTransitions.allows(s, next)
}
