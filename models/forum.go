package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ForumPost is stored in the forums table.
type ForumPost struct {
	ID           uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID                   `gorm:"type:uuid;index;not null" json:"user_id"`
	Author       *User                       `gorm:"foreignKey:UserID" json:"author,omitempty"`
	Title        string                      `gorm:"not null" json:"title"`
	Content      string                      `json:"content"`
	Community    string                      `gorm:"index" json:"community,omitempty"`
	Tags         datatypes.JSONSlice[string] `json:"tags"`
	Comments     []Comment                   `gorm:"foreignKey:ForumID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	RepliesCount int64                       `gorm:"-" json:"replies_count"`
	CreatedAt    time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

func (ForumPost) TableName() string {
	return "forums"
}

func (p *ForumPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Tags == nil {
		p.Tags = datatypes.JSONSlice[string]{}
	}
	return nil
}

type Comment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ForumID   uuid.UUID `gorm:"type:uuid;index;not null" json:"forum_id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Author    *User     `gorm:"foreignKey:UserID" json:"author,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
