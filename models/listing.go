package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Mode string

const (
	ModeGift   Mode = "gift"
	ModeBarter Mode = "barter"
	ModeSell   Mode = "sell"
	ModeBuy    Mode = "buy"
)

var Modes = []Mode{ModeGift, ModeBarter, ModeSell, ModeBuy}

type Condition string

const (
	ConditionNew       Condition = "new"
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

var Conditions = []Condition{ConditionNew, ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor}

type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingClaimed   ListingStatus = "claimed"
	ListingInactive  ListingStatus = "inactive"
)

var ListingStatuses = []ListingStatus{ListingAvailable, ListingClaimed, ListingInactive}

// Listing is a marketplace item. Table name: listings.
type Listing struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID                   `gorm:"type:uuid;index;not null" json:"user_id"`
	Owner       *User                       `gorm:"foreignKey:UserID" json:"owner,omitempty"`
	Title       string                      `gorm:"not null" json:"title"`
	Description string                      `json:"description"`
	Images      datatypes.JSONSlice[string] `json:"images"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Category    string                      `gorm:"index" json:"category"`
	Condition   Condition                   `json:"condition"`
	Mode        Mode                        `gorm:"index" json:"mode"`
	Price       *float64                    `json:"price,omitempty"`
	TagIndex    string                      `json:"-"`
	DesiredTags datatypes.JSONSlice[string] `json:"desired_tags,omitempty"`
	DesiredText string                      `json:"desired_text,omitempty"`
	Location    Location                    `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	Status      ListingStatus               `gorm:"index;not null" json:"status"`
	Views       int                         `gorm:"not null" json:"views"`
	IsPromoted  bool                        `json:"is_promoted"`
	CreatedAt   time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = ListingAvailable
	}
	if l.Images == nil {
		l.Images = datatypes.JSONSlice[string]{}
	}
	if l.Tags == nil {
		l.Tags = datatypes.JSONSlice[string]{}
	}
	l.TagIndex = TagIndex(l.Tags)
	l.Views = 0
	return nil
}

// CanTransition reports whether the owner may move the listing to next.
// claimed is only entered through a claim and never left by the owner.
func (s ListingStatus) CanTransition(next ListingStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case ListingAvailable:
		return next == ListingInactive
	case ListingInactive:
		return next == ListingAvailable
	}
	return false
}

// TagSeparator delimits tags in a listing's tag index.
const TagSeparator = "\n"

// TagIndex lowercases tags into one searchable column, each tag wrapped in
// separators so a substring match never spans two tags.
func TagIndex(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	lower := make([]string, len(tags))
	for i, tag := range tags {
		lower[i] = strings.ToLower(tag)
	}
	return TagSeparator + strings.Join(lower, TagSeparator) + TagSeparator
}
