package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

type DriveStatus string

const (
	DriveActive    DriveStatus = "active"
	DriveCompleted DriveStatus = "completed"
)

// NGODrive is a time-boxed donation campaign.
type NGODrive struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	NGOID       uuid.UUID                   `gorm:"column:ngo_id;type:uuid;index;not null" json:"ngo_id"`
	NGO         *User                       `gorm:"foreignKey:NGOID" json:"ngo,omitempty"`
	Title       string                      `gorm:"not null" json:"title"`
	Description string                      `json:"description"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Priority    Priority                    `gorm:"not null" json:"priority"`
	Progress    int                         `gorm:"not null" json:"progress"`
	Status      DriveStatus                 `gorm:"index;not null" json:"status"`
	Deadline    *time.Time                  `json:"deadline,omitempty"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

func (NGODrive) TableName() string {
	return "ngo_drives"
}

func (d *NGODrive) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if d.Status == "" {
		d.Status = DriveActive
	}
	if d.Tags == nil {
		d.Tags = datatypes.JSONSlice[string]{}
	}
	return nil
}

// SetProgress clamps p into 0..100; reaching 100 completes the drive.
func (d *NGODrive) SetProgress(p int) {
	switch {
	case p < 0:
		p = 0
	case p > 100:
		p = 100
	}
	d.Progress = p
	if p == 100 {
		d.Status = DriveCompleted
	}
}

type DonationStatus string

const (
	DonationPledged   DonationStatus = "pledged"
	DonationDelivered DonationStatus = "delivered"
	DonationReceived  DonationStatus = "received"
)

// Donation is a pledge against an NGO drive, optionally of a listing.
type Donation struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	User       *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	NGODriveID uuid.UUID      `gorm:"column:ngo_drive_id;type:uuid;index;not null" json:"ngo_drive_id"`
	Drive      *NGODrive      `gorm:"foreignKey:NGODriveID" json:"ngo_drive,omitempty"`
	ItemID     *uuid.UUID     `gorm:"type:uuid" json:"item_id,omitempty"`
	Item       *Listing       `gorm:"foreignKey:ItemID;constraint:OnDelete:SET NULL" json:"item,omitempty"`
	Status     DonationStatus `gorm:"not null" json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (d *Donation) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DonationPledged
	}
	return nil
}

var donationTransitions = transitions[DonationStatus]{
	DonationPledged:   {DonationDelivered},
	DonationDelivered: {DonationReceived},
}

func (s DonationStatus) Valid() bool {
	return s == DonationPledged || s == DonationDelivered || s == DonationReceived
}

func (s DonationStatus) CanTransition(next DonationStatus) bool {
	return donationTransitions.allows(s, next)
}
