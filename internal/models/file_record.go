package models

import (
	"time"
)

// FileRecord holds the metadata of a MIME part stored for a post. The
// payload itself lives in file storage under FilePath; FileID is derived
// from the payload so identical files dedupe naturally.
type FileRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FileID    string    `gorm:"not null;size:32;index" json:"file_id"`
	PostID    string    `gorm:"not null;size:32;index" json:"post_id"`
	Filename  string    `gorm:"size:255" json:"filename"`
	MimeType  string    `gorm:"size:100" json:"mime_type"`
	Charset   string    `gorm:"size:40" json:"charset,omitempty"`
	ContentID string    `gorm:"size:255" json:"content_id,omitempty"`
	Length    int       `json:"length"`
	MD5       string    `gorm:"size:32" json:"md5"`
	FilePath  string    `gorm:"size:500" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	Post Post `gorm:"foreignKey:PostID;references:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for FileRecord
func (FileRecord) TableName() string {
	return "file_records"
}
