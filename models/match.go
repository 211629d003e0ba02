package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchMatched   MatchStatus = "matched"
	MatchCancelled MatchStatus = "cancelled"
)

// Match is a swap offer: user A offers item A for user B's item B.
type Match struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserAID   uuid.UUID   `gorm:"column:user_a_id;type:uuid;index;not null" json:"user_a_id"`
	UserBID   uuid.UUID   `gorm:"column:user_b_id;type:uuid;index;not null" json:"user_b_id"`
	ItemAID   uuid.UUID   `gorm:"column:item_a_id;type:uuid;not null" json:"item_a_id"`
	ItemBID   uuid.UUID   `gorm:"column:item_b_id;type:uuid;not null" json:"item_b_id"`
	UserA     *User       `gorm:"foreignKey:UserAID" json:"user_a,omitempty"`
	UserB     *User       `gorm:"foreignKey:UserBID" json:"user_b,omitempty"`
	ItemA     *Listing    `gorm:"foreignKey:ItemAID;constraint:OnDelete:CASCADE" json:"item_a,omitempty"`
	ItemB     *Listing    `gorm:"foreignKey:ItemBID;constraint:OnDelete:CASCADE" json:"item_b,omitempty"`
	Message   string      `json:"message,omitempty"`
	Status    MatchStatus `gorm:"index;not null" json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (m *Match) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = MatchPending
	}
	return nil
}

func (m *Match) Involves(userID uuid.UUID) bool {
	return m.UserAID == userID || m.UserBID == userID
}

var matchTransitions = transitions[MatchStatus]{
	MatchPending: {MatchMatched, MatchCancelled},
	MatchMatched: {MatchCancelled},
}

func (s MatchStatus) Valid() bool {
	return s == MatchPending || s == MatchMatched || s == MatchCancelled
}

func (s MatchStatus) CanTransition(next MatchStatus) bool {
	return matchTransitions.allows(s, next)
}
