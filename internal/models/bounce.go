package models

import (
	"time"
)

// BounceEvent is one detected delivery failure. Rows are append-only; the
// escalation state is always recomputed from them, never stored.
type BounceEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"not null;size:255" json:"user_id"`
	GroupID   string    `gorm:"not null;size:255;index:idx_bounce_events_lookup,priority:2" json:"group_id"`
	SiteID    string    `gorm:"not null;size:255" json:"site_id"`
	Email     string    `gorm:"not null;size:255;index:idx_bounce_events_lookup,priority:1" json:"email"`
	Day       string    `gorm:"not null;size:8" json:"day"`
	BouncedAt time.Time `gorm:"not null;index" json:"bounced_at"`
}

// TableName returns the table name for BounceEvent
func (BounceEvent) TableName() string {
	return "bounce_events"
}

// GroupDigest records that a daily topic digest went out for a group, so
// the scheduler can tell which groups are due.
type GroupDigest struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	GroupID string    `gorm:"not null;size:255;index" json:"group_id"`
	SiteID  string    `gorm:"not null;size:255" json:"site_id"`
	SentAt  time.Time `gorm:"not null;index" json:"sent_at"`
}

// TableName returns the table name for GroupDigest
func (GroupDigest) TableName() string {
	return "group_digests"
}
