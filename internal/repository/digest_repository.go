package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/listmill/listmill/internal/models"
)

// Digest scheduling windows. A group is due when it saw a post in the last
// day, or when it has been a week without a digest but the group was active
// within the last quarter.
const (
	digestInterval   = 24 * time.Hour
	digestStaleAfter = 7 * 24 * time.Hour
	digestActivity   = 90 * 24 * time.Hour
)

// DigestRepository tracks which groups have been sent their topic digest
type DigestRepository interface {
	HasDigestSince(ctx context.Context, groupID string, since time.Time) (bool, error)
	// GroupsNeedingDigest returns the group ids due for a digest at the
	// given time.
	GroupsNeedingDigest(ctx context.Context, now time.Time) ([]string, error)
	MarkDigestSent(ctx context.Context, groupID, siteID string, at time.Time) error
}

// digestRepository implements DigestRepository using GORM
type digestRepository struct {
	db *gorm.DB
}

// NewDigestRepository creates a new DigestRepository instance
func NewDigestRepository(db *gorm.DB) DigestRepository {
	return &digestRepository{db: db}
}

// HasDigestSince reports whether a digest went out for the group after the
// given time
func (r *digestRepository) HasDigestSince(ctx context.Context, groupID string, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GroupDigest{}).
		Where("group_id = ? AND sent_at > ?", groupID, since).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check digest history: %w", err)
	}
	return count > 0, nil
}

func (r *digestRepository) GroupsNeedingDigest(ctx context.Context, now time.Time) ([]string, error) {
	// Groups with a post in the last day that have not had a digest since
	// that window opened, plus quiet groups whose last digest is over a
	// week old but that posted within the last three months.
	query := `
		SELECT l.group_id
		FROM lists l
		WHERE EXISTS (
			SELECT 1 FROM posts p
			WHERE p.group_id = l.group_id AND p.date > ?
		)
		AND NOT EXISTS (
			SELECT 1 FROM group_digests d
			WHERE d.group_id = l.group_id AND d.sent_at > ?
		)
		UNION
		SELECT l.group_id
		FROM lists l
		WHERE EXISTS (
			SELECT 1 FROM posts p
			WHERE p.group_id = l.group_id AND p.date > ?
		)
		AND NOT EXISTS (
			SELECT 1 FROM group_digests d
			WHERE d.group_id = l.group_id AND d.sent_at > ?
		)
		ORDER BY group_id
	`
	dayAgo := now.Add(-digestInterval)
	weekAgo := now.Add(-digestStaleAfter)
	quarterAgo := now.Add(-digestActivity)

	var groupIDs []string
	err := r.db.WithContext(ctx).Raw(query, dayAgo, dayAgo, quarterAgo, weekAgo).Scan(&groupIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find groups needing digest: %w", err)
	}
	return groupIDs, nil
}

// MarkDigestSent records that a digest went out for the group
func (r *digestRepository) MarkDigestSent(ctx context.Context, groupID, siteID string, at time.Time) error {
	record := models.GroupDigest{GroupID: groupID, SiteID: siteID, SentAt: at}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to record digest: %w", err)
	}
	return nil
}
