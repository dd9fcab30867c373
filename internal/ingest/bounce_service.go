package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/listmill/listmill/internal/bounce"
	apperrors "github.com/listmill/listmill/internal/errors"
	"github.com/listmill/listmill/internal/logger"
	"github.com/listmill/listmill/internal/repository"
)

// Notifier delivers bounce notifications to a user's remaining addresses.
type Notifier interface {
	NotifyBounce(ctx context.Context, addresses []string, email, groupID string, disabled bool) error
}

// BounceReport is one delivery-failure report from the transport layer.
type BounceReport struct {
	Email   string `json:"email"`
	GroupID string `json:"group_id"`
}

// BounceService drives the side effects the bounce tracker decides on:
// revoking verification, notifying the user, and audit logging.
type BounceService struct {
	tracker  *bounce.Tracker
	members  repository.MemberRepository
	notifier Notifier
	audit    *logger.SecurityLogger
}

// NewBounceService creates a BounceService. notifier may be nil.
func NewBounceService(tracker *bounce.Tracker, members repository.MemberRepository, notifier Notifier, audit *logger.SecurityLogger) *BounceService {
	return &BounceService{
		tracker:  tracker,
		members:  members,
		notifier: notifier,
		audit:    audit,
	}
}

// HandleBounce records one bounce and applies the resulting directives. An
// unknown list or address is recoverable: the error wraps the matching
// sentinel and no state changes.
func (s *BounceService) HandleBounce(ctx context.Context, email, groupID string) (*bounce.Result, error) {
	result, err := s.tracker.RecordBounce(ctx, email, groupID)
	if err != nil {
		if s.audit != nil && apperrors.IsNotFound(err) {
			s.audit.Error("bounce report skipped",
				slog.String("email", email),
				slog.String("group_id", groupID),
				slog.String("error", err.Error()))
		}
		return nil, err
	}

	if result.RevokeVerification {
		if err := s.members.UnverifyEmail(ctx, result.Email); err != nil {
			return result, fmt.Errorf("disabling email <%s>: %w", result.Email, err)
		}
		if s.audit != nil {
			s.audit.EmailDisabled(result.Email, result.UserID, result.GroupID, result.DistinctDays)
		}
	} else if s.audit != nil {
		s.audit.BounceDetected(result.Email, result.GroupID, result.DistinctDays)
	}

	// Notification failure is not fatal; the bounce is already recorded
	// and the state change applied.
	if result.Notify && s.notifier != nil && len(result.NotifyAddresses) > 0 {
		err := s.notifier.NotifyBounce(ctx, result.NotifyAddresses, result.Email,
			result.GroupID, result.RevokeVerification)
		if err != nil && s.audit != nil {
			s.audit.Error("bounce notification failed",
				slog.String("email", result.Email),
				slog.String("group_id", result.GroupID),
				slog.String("error", err.Error()))
		}
	}

	return result, nil
}

// BounceBatchItem pairs one report with its outcome.
type BounceBatchItem struct {
	Index  int            `json:"index"`
	Result *bounce.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// HandleBatch processes bounce reports one by one, continuing past
// recoverable failures.
func (s *BounceService) HandleBatch(ctx context.Context, reports []BounceReport) []BounceBatchItem {
	items := make([]BounceBatchItem, 0, len(reports))
	for i, report := range reports {
		item := BounceBatchItem{Index: i}
		result, err := s.HandleBounce(ctx, report.Email, report.GroupID)
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Result = result
		}
		items = append(items, item)
	}
	return items
}

// Status reports the escalation state for an address within a group.
func (s *BounceService) Status(ctx context.Context, email, groupID string) (bounce.State, int, error) {
	return s.tracker.Status(ctx, email, groupID)
}
