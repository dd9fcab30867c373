package models

import (
	"time"
)

// Topic represents a thread of posts sharing a compressed subject within a
// group. It is created by the first post carrying a new topic id and deleted
// when its last post is removed.
type Topic struct {
	TopicID         string    `gorm:"primaryKey;size:32" json:"topic_id"`
	GroupID         string    `gorm:"not null;size:255;index:idx_topics_group" json:"group_id"`
	SiteID          string    `gorm:"not null;size:255" json:"site_id"`
	OriginalSubject string    `json:"original_subject"`
	FirstPostID     string    `gorm:"not null;size:32" json:"first_post_id"`
	LastPostID      string    `gorm:"not null;size:32" json:"last_post_id"`
	LastPostDate    time.Time `gorm:"not null;index" json:"last_post_date"`
	PostCount       int       `gorm:"not null;default:0" json:"post_count"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	Posts      []Post           `gorm:"foreignKey:TopicID;references:TopicID" json:"-"`
	WordCounts []TopicWordCount `gorm:"foreignKey:TopicID;references:TopicID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Topic
func (Topic) TableName() string {
	return "topics"
}

// TopicWordCount accumulates the per-word occurrence counts of a topic's
// posts, a best-effort signal consumed by search indexing.
type TopicWordCount struct {
	TopicID string `gorm:"primaryKey;size:32" json:"topic_id"`
	Word    string `gorm:"primaryKey;size:18" json:"word"`
	Count   int    `gorm:"not null;default:0" json:"count"`
}

// TableName returns the table name for TopicWordCount
func (TopicWordCount) TableName() string {
	return "topic_word_counts"
}
