package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser Role = "user"
	RoleNGO  Role = "ngo"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleNGO
}

// Location is embedded into users and listings with a location_ column prefix.
type Location struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	Password    string    `gorm:"not null" json:"-"` // bcrypt hash, hidden from JSON
	Name        string    `json:"name"`
	Avatar      string    `json:"avatar,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Role        Role      `gorm:"index;not null" json:"role"`
	Location    Location  `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	IsVerified  bool      `json:"is_verified"`
	KarmaPoints int       `gorm:"not null" json:"karma_points"`
	Listings    []Listing `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"listings,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// AdjustKarma atomically adds delta to a user's karma inside tx.
func AdjustKarma(tx *gorm.DB, userID uuid.UUID, delta int) error {
	return tx.Model(&User{}).
		Where("id = ?", userID).
		UpdateColumn("karma_points", gorm.Expr("karma_points + ?", delta)).Error
}
