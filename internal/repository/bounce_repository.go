package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/listmill/listmill/internal/bounce"
	"github.com/listmill/listmill/internal/models"
)

// BounceRepository is the append-only bounce log. It satisfies bounce.Store.
type BounceRepository interface {
	bounce.Store
	RecentBounces(ctx context.Context, email, groupID string, limit int) ([]models.BounceEvent, error)
}

// bounceRepository implements BounceRepository using GORM
type bounceRepository struct {
	db *gorm.DB
}

// NewBounceRepository creates a new BounceRepository instance
func NewBounceRepository(db *gorm.DB) BounceRepository {
	return &bounceRepository{db: db}
}

// AddBounce appends one bounce event. Rows are never updated or deleted.
func (r *bounceRepository) AddBounce(ctx context.Context, userID, groupID, siteID, email string, at time.Time) error {
	event := models.BounceEvent{
		UserID:    userID,
		GroupID:   groupID,
		SiteID:    siteID,
		Email:     email,
		Day:       at.Format(bounce.DayFormat),
		BouncedAt: at,
	}
	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("failed to record bounce: %w", err)
	}
	return nil
}

// DistinctBounceDays returns the distinct calendar days on which the address
// bounced for the group since the given time, most recent first.
func (r *bounceRepository) DistinctBounceDays(ctx context.Context, email, groupID string, since time.Time) ([]string, error) {
	var days []string
	err := r.db.WithContext(ctx).Model(&models.BounceEvent{}).
		Distinct("day").
		Where("email = ? AND group_id = ? AND bounced_at > ?", email, groupID, since).
		Order("day DESC").
		Pluck("day", &days).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query bounce days: %w", err)
	}
	return days, nil
}

// RecentBounces returns the latest raw bounce events for an address in a group
func (r *bounceRepository) RecentBounces(ctx context.Context, email, groupID string, limit int) ([]models.BounceEvent, error) {
	var events []models.BounceEvent
	err := r.db.WithContext(ctx).
		Where("email = ? AND group_id = ?", email, groupID).
		Order("bounced_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bounce events: %w", err)
	}
	return events, nil
}
