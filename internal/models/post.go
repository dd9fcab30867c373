package models

import (
	"time"
)

// Post represents one email message accepted into a group's archive. Its
// identity is content-addressed, so re-ingesting a byte-identical message
// lands on the same row.
type Post struct {
	PostID            string    `gorm:"primaryKey;size:32" json:"post_id"`
	TopicID           string    `gorm:"not null;size:32;index" json:"topic_id"`
	GroupID           string    `gorm:"not null;size:255;index:idx_posts_group" json:"group_id"`
	SiteID            string    `gorm:"not null;size:255" json:"site_id"`
	SenderID          string    `gorm:"size:255;index" json:"sender_id"`
	Sender            string    `gorm:"not null;size:255" json:"sender"`
	Subject           string    `json:"subject"`
	CompressedSubject string    `gorm:"size:255" json:"-"`
	InReplyTo         string    `gorm:"size:998" json:"in_reply_to,omitempty"`
	Date              time.Time `gorm:"not null;index" json:"date"`
	Body              string    `json:"body,omitempty"`
	HTMLBody          string    `json:"html_body,omitempty"`
	Headers           string    `json:"-"`
	AttachmentCount   int       `gorm:"default:0" json:"attachment_count"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	Topic Topic        `gorm:"foreignKey:TopicID;references:TopicID" json:"-"`
	Files []FileRecord `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"files,omitempty"`
}

// TableName returns the table name for Post
func (Post) TableName() string {
	return "posts"
}

// PostListItem is a lightweight version for list views
type PostListItem struct {
	PostID          string    `json:"post_id"`
	TopicID         string    `json:"topic_id"`
	GroupID         string    `json:"group_id"`
	SenderID        string    `json:"sender_id"`
	Sender          string    `json:"sender"`
	Subject         string    `json:"subject"`
	Date            time.Time `json:"date"`
	AttachmentCount int       `json:"attachment_count"`
}
