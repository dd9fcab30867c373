package models

import (
	"time"
)

// List represents a mailing list: one group within a site, reachable at a
// posting address.
type List struct {
	GroupID       string    `gorm:"primaryKey;size:255" json:"group_id"`
	SiteID        string    `gorm:"not null;size:255;index" json:"site_id"`
	Title         string    `gorm:"not null;size:255" json:"title"`
	Mailto        string    `gorm:"uniqueIndex;not null;size:255" json:"mailto"`
	PublicArchive bool      `gorm:"default:false" json:"public_archive"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	Topics []Topic `gorm:"foreignKey:GroupID;references:GroupID" json:"-"`
}

// TableName returns the table name for List
func (List) TableName() string {
	return "lists"
}

// UserEmail maps an email address to the user who owns it. Verified
// addresses receive group mail; bounce escalation flips Verified off.
type UserEmail struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     string     `gorm:"not null;size:255;index" json:"user_id"`
	Email      string     `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Verified   bool       `gorm:"default:false;index" json:"verified"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// TableName returns the table name for UserEmail
func (UserEmail) TableName() string {
	return "user_emails"
}
