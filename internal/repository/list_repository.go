package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/listmill/listmill/internal/errors"
	"github.com/listmill/listmill/internal/models"
)

// ListRepository defines the interface for mailing list data access. It
// satisfies bounce.ListResolver.
type ListRepository interface {
	Create(ctx context.Context, list *models.List) error
	GetByGroupID(ctx context.Context, groupID string) (*models.List, error)
	// GetByMailto resolves the list a message was addressed to. The lookup
	// is case-insensitive on the address.
	GetByMailto(ctx context.Context, address string) (*models.List, error)
	SiteForGroup(ctx context.Context, groupID string) (string, error)
	ListAll(ctx context.Context) ([]models.List, error)
	Delete(ctx context.Context, groupID string) error
}

// listRepository implements ListRepository using GORM
type listRepository struct {
	db *gorm.DB
}

// NewListRepository creates a new ListRepository instance
func NewListRepository(db *gorm.DB) ListRepository {
	return &listRepository{db: db}
}

// Create creates a new mailing list
func (r *listRepository) Create(ctx context.Context, list *models.List) error {
	list.Mailto = strings.ToLower(strings.TrimSpace(list.Mailto))
	result := r.db.WithContext(ctx).Create(list)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("list with address '%s' already exists: %w", list.Mailto, apperrors.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create list: %w", result.Error)
	}
	return nil
}

// GetByGroupID retrieves a list by its group id
func (r *listRepository) GetByGroupID(ctx context.Context, groupID string) (*models.List, error) {
	var list models.List
	result := r.db.WithContext(ctx).Where("group_id = ?", groupID).First(&list)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrListNotFound
		}
		return nil, fmt.Errorf("failed to get list by group: %w", result.Error)
	}
	return &list, nil
}

// GetByMailto retrieves a list by its posting address
func (r *listRepository) GetByMailto(ctx context.Context, address string) (*models.List, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	var list models.List
	result := r.db.WithContext(ctx).Where("mailto = ?", address).First(&list)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrListNotFound
		}
		return nil, fmt.Errorf("failed to get list by address: %w", result.Error)
	}
	return &list, nil
}

// SiteForGroup resolves a group to its site
func (r *listRepository) SiteForGroup(ctx context.Context, groupID string) (string, error) {
	list, err := r.GetByGroupID(ctx, groupID)
	if err != nil {
		return "", err
	}
	return list.SiteID, nil
}

// ListAll retrieves every mailing list
func (r *listRepository) ListAll(ctx context.Context) ([]models.List, error) {
	var lists []models.List
	if err := r.db.WithContext(ctx).Order("group_id ASC").Find(&lists).Error; err != nil {
		return nil, fmt.Errorf("failed to list mailing lists: %w", err)
	}
	return lists, nil
}

// Delete deletes a mailing list by its group id
func (r *listRepository) Delete(ctx context.Context, groupID string) error {
	result := r.db.WithContext(ctx).Where("group_id = ?", groupID).Delete(&models.List{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete list: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrListNotFound
	}
	return nil
}
