// Package bounce tracks delivery failures per recipient and decides when to
// escalate from tracking, to notification, to disabling delivery.
//
// The decision logic is a pure state machine over an append-only bounce log:
// the per-recipient state (Clean, Bouncing, Disabled) is recomputed from the
// distinct bounce days in a rolling window each time a bounce arrives, never
// stored. The tracker performs no unverify/notify/audit I/O itself; it
// returns a Result describing the actions due, and the caller drives the
// side effects through its own collaborators.
package bounce

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/listmill/listmill/internal/keylock"
)

// Event types reported in a Result.
const (
	EventBounceDetected = "bounce_detection"
	EventDisabledEmail  = "disabled_email"
)

// State of a (recipient, group) pair, derived from the bounce log.
type State string

const (
	StateClean    State = "clean"
	StateBouncing State = "bouncing"
	StateDisabled State = "disabled"
)

const (
	// DefaultLookbackDays is the rolling window over which distinct bounce
	// days are counted.
	DefaultLookbackDays = 60

	// DisableThreshold is the number of distinct bounce days within the
	// window at which delivery to the address is disabled.
	DisableThreshold = 5
)

// DayFormat is the calendar-day key used to collapse multiple bounces on
// the same day.
const DayFormat = "20060102"

// Store is the append-only bounce log.
type Store interface {
	// DistinctBounceDays returns the distinct calendar days (DayFormat
	// keys) on which the recipient bounced for the group since the given
	// time, most recent first.
	DistinctBounceDays(ctx context.Context, email, groupID string, since time.Time) ([]string, error)

	// AddBounce appends one bounce event. Records are never mutated or
	// deleted by this engine.
	AddBounce(ctx context.Context, userID, groupID, siteID, email string, at time.Time) error
}

// Directory resolves bounce ownership and verified addresses.
type Directory interface {
	// UserIDByEmail returns the owner of an address, or ErrUserNotFound.
	UserIDByEmail(ctx context.Context, email string) (string, error)

	// VerifiedAddresses returns the user's currently verified addresses.
	VerifiedAddresses(ctx context.Context, userID string) ([]string, error)
}

// ListResolver resolves a group to its site, or ErrListNotFound.
type ListResolver interface {
	SiteForGroup(ctx context.Context, groupID string) (string, error)
}

// Result describes the outcome of recording one bounce and the actions the
// caller must take. The tracker never performs the unverify or notification
// itself.
type Result struct {
	Event   string `json:"event"`
	Email   string `json:"email"`
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id"`
	SiteID  string `json:"site_id"`

	// DistinctDays counts the distinct bounce days in the window, today
	// included. DaysChecked is the window size.
	DistinctDays int `json:"distinct_days"`
	DaysChecked  int `json:"days_checked"`

	// Notify is set when this is the first bounce recorded today; at most
	// one notification per calendar day per recipient.
	Notify bool `json:"notify"`

	// NotifyAddresses are the user's remaining verified addresses the
	// notification should go to. Empty when the user has no other address.
	NotifyAddresses []string `json:"notify_addresses,omitempty"`

	// RevokeVerification instructs the caller to unverify this specific
	// address on this user. Other verified addresses are untouched.
	RevokeVerification bool `json:"revoke_verification"`

	// AlreadyUnverified reports that the bounced address was absent from
	// the verified set; recorded, but no escalation or notification.
	AlreadyUnverified bool `json:"already_unverified"`
}

// State derives the escalation state from the distinct-day count.
func (r *Result) State() State {
	return stateForDays(r.DistinctDays)
}

func stateForDays(days int) State {
	switch {
	case days >= DisableThreshold:
		return StateDisabled
	case days > 0:
		return StateBouncing
	default:
		return StateClean
	}
}

// Tracker evaluates bounce escalation per (recipient, group).
type Tracker struct {
	store        Store
	directory    Directory
	lists        ListResolver
	lookbackDays int
	now          func() time.Time
	locks        *keylock.KeyLock
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLookbackDays overrides the rolling window size.
func WithLookbackDays(days int) Option {
	return func(t *Tracker) {
		if days > 0 {
			t.lookbackDays = days
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a Tracker over the given collaborators.
func NewTracker(store Store, directory Directory, lists ListResolver, opts ...Option) *Tracker {
	t := &Tracker{
		store:        store,
		directory:    directory,
		lists:        lists,
		lookbackDays: DefaultLookbackDays,
		now:          time.Now,
		locks:        keylock.New(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordBounce records one delivery failure for the address within a group
// and returns the escalation decision. Concurrent calls for the same
// (email, group) pair are serialized so two reports cannot both read a
// stale distinct-day count.
//
// A missing list or an unowned address is an expected, recoverable
// condition: the error wraps ErrListNotFound or ErrUserNotFound and the
// caller logs it and continues with the next report.
func (t *Tracker) RecordBounce(ctx context.Context, email, groupID string) (*Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	unlock := t.locks.Lock(email + "\x00" + groupID)
	defer unlock()

	siteID, err := t.lists.SiteForGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("bounce detection failure: no list for group %q: %w", groupID, err)
	}

	userID, err := t.directory.UserIDByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("bounce detection failure: no user with email <%s>: %w", email, err)
	}

	now := t.now()
	since := now.AddDate(0, 0, -t.lookbackDays)

	previousDays, err := t.store.DistinctBounceDays(ctx, email, groupID, since)
	if err != nil {
		return nil, fmt.Errorf("querying bounce history for <%s>: %w", email, err)
	}

	if err := t.store.AddBounce(ctx, userID, groupID, siteID, email, now); err != nil {
		return nil, fmt.Errorf("recording bounce for <%s>: %w", email, err)
	}

	result := &Result{
		Event:       EventBounceDetected,
		Email:       email,
		UserID:      userID,
		GroupID:     groupID,
		SiteID:      siteID,
		DaysChecked: t.lookbackDays,
	}

	today := now.Format(DayFormat)
	distinctDays := previousDays
	if !containsDay(previousDays, today) {
		distinctDays = append(distinctDays, today)
		result.Notify = true
	}
	result.DistinctDays = len(distinctDays)

	verified, err := t.directory.VerifiedAddresses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("looking up verified addresses for user %q: %w", userID, err)
	}

	remaining, found := removeAddress(verified, email)
	if !found {
		// Already unverified by other means: record the bounce and report
		// the state, without escalating or notifying.
		result.AlreadyUnverified = true
		result.Notify = false
		return result, nil
	}

	if result.DistinctDays >= DisableThreshold {
		result.Event = EventDisabledEmail
		result.RevokeVerification = true
	}

	if result.Notify {
		result.NotifyAddresses = remaining
	}

	return result, nil
}

// Status reports the current escalation state for an address within a
// group, recomputed from the bounce log.
func (t *Tracker) Status(ctx context.Context, email, groupID string) (State, int, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	since := t.now().AddDate(0, 0, -t.lookbackDays)

	days, err := t.store.DistinctBounceDays(ctx, email, groupID, since)
	if err != nil {
		return StateClean, 0, fmt.Errorf("querying bounce history for <%s>: %w", email, err)
	}
	return stateForDays(len(days)), len(days), nil
}

func containsDay(days []string, day string) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

func removeAddress(addresses []string, email string) (remaining []string, found bool) {
	remaining = make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if strings.EqualFold(strings.TrimSpace(addr), email) {
			found = true
			continue
		}
		remaining = append(remaining, strings.ToLower(strings.TrimSpace(addr)))
	}
	return remaining, found
}
