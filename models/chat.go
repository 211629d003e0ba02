package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageSystem MessageType = "system"
)

type ChatThread struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID    *uuid.UUID          `gorm:"type:uuid;index" json:"listing_id,omitempty"`
	Listing      *Listing            `gorm:"foreignKey:ListingID;constraint:OnDelete:SET NULL" json:"listing,omitempty"`
	MatchID      *uuid.UUID          `gorm:"type:uuid" json:"match_id,omitempty"`
	Participants []ThreadParticipant `gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	LastMessage  *Message            `gorm:"-" json:"last_message,omitempty"`
	UnreadCount  int64               `gorm:"-" json:"unread_count"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `gorm:"index" json:"updated_at"`
}

func (t *ChatThread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type ThreadParticipant struct {
	ThreadID uuid.UUID `gorm:"type:uuid;primaryKey" json:"thread_id"`
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

type Message struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ThreadID  uuid.UUID   `gorm:"type:uuid;index;not null" json:"thread_id"`
	SenderID  uuid.UUID   `gorm:"type:uuid;not null" json:"sender_id"`
	Sender    *User       `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Content   string      `gorm:"type:text;not null" json:"content"`
	Type      MessageType `gorm:"not null" json:"type"`
	IsRead    bool        `json:"is_read"`
	CreatedAt time.Time   `gorm:"index" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Type == "" {
		m.Type = MessageText
	}
	return nil
}
