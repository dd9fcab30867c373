package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/listmill/listmill/internal/errors"
	"github.com/listmill/listmill/internal/models"
)

// MemberRepository resolves addresses to users and manages address
// verification. It satisfies bounce.Directory.
type MemberRepository interface {
	AddEmail(ctx context.Context, userID, email string, verified bool) error
	UserIDByEmail(ctx context.Context, email string) (string, error)
	VerifiedAddresses(ctx context.Context, userID string) ([]string, error)
	// UnverifyEmail revokes verification for one address only; the user's
	// other addresses keep receiving mail.
	UnverifyEmail(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, email string) error
}

// memberRepository implements MemberRepository using GORM
type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new MemberRepository instance
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

// AddEmail registers an address for a user
func (r *memberRepository) AddEmail(ctx context.Context, userID, email string, verified bool) error {
	record := models.UserEmail{
		UserID:   userID,
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Verified: verified,
	}
	if verified {
		now := time.Now()
		record.VerifiedAt = &now
	}
	result := r.db.WithContext(ctx).Create(&record)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("email '%s' already registered: %w", record.Email, apperrors.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to add email: %w", result.Error)
	}
	return nil
}

// UserIDByEmail returns the owner of an address, verified or not
func (r *memberRepository) UserIDByEmail(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var record models.UserEmail
	result := r.db.WithContext(ctx).Where("email = ?", email).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrUserNotFound
		}
		return "", fmt.Errorf("failed to look up email owner: %w", result.Error)
	}
	return record.UserID, nil
}

// VerifiedAddresses returns the user's currently verified addresses
func (r *memberRepository) VerifiedAddresses(ctx context.Context, userID string) ([]string, error) {
	var addresses []string
	err := r.db.WithContext(ctx).Model(&models.UserEmail{}).
		Where("user_id = ? AND verified = ?", userID, true).
		Order("email ASC").
		Pluck("email", &addresses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list verified addresses: %w", err)
	}
	return addresses, nil
}

// UnverifyEmail revokes verification for an address
func (r *memberRepository) UnverifyEmail(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	result := r.db.WithContext(ctx).Model(&models.UserEmail{}).
		Where("email = ?", email).
		Updates(map[string]interface{}{"verified": false, "verified_at": nil})
	if result.Error != nil {
		return fmt.Errorf("failed to unverify email: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// VerifyEmail marks an address as verified
func (r *memberRepository) VerifyEmail(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.UserEmail{}).
		Where("email = ?", email).
		Updates(map[string]interface{}{"verified": true, "verified_at": &now})
	if result.Error != nil {
		return fmt.Errorf("failed to verify email: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
