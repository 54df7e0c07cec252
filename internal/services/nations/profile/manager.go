// Package profile exposes per-member profile data and the daily check-in
// reward.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TinyAII/dqcq/internal/services/nations/domain"
	"github.com/TinyAII/dqcq/internal/services/nations/storage"
)

// CheckInReward is paid into the caller's inventory once per UTC day.
var CheckInReward = domain.Delta{
	domain.ResourceGold:   100,
	domain.ResourceSilver: 50,
}

type profileStore interface {
	storage.ProfileStore
}

// Manager executes profile reads and the daily check-in.
type Manager struct {
	store profileStore
	clock func() time.Time
}

// NewManager creates a profile manager backed by nation storage.
func NewManager(store profileStore) *Manager {
	return &Manager{
		store: store,
		clock: time.Now,
	}
}

// WithClock overrides the manager clock.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	if clock != nil {
		m.clock = clock
	}
	return m
}

// View is one member's profile summary.
type View struct {
	Identity       string
	DisplayName    string
	JoinedAt       time.Time
	Balances       domain.Balances
	CheckInCount   int
	LastCheckInDay string
}

// Profile returns the caller's profile. Requires an active membership.
func (m *Manager) Profile(ctx context.Context, identity string) (View, error) {
	if m == nil || m.store == nil {
		return View{}, fmt.Errorf("profile manager is not configured")
	}

	record, err := m.store.GetProfile(ctx, strings.TrimSpace(identity))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return View{}, domain.ErrNotMember
	case err != nil:
		return View{}, fmt.Errorf("load profile: %w", err)
	}
	return View{
		Identity:       record.Membership.Identity,
		DisplayName:    record.Membership.DisplayName,
		JoinedAt:       record.Membership.JoinedAt,
		Balances:       record.Balances,
		CheckInCount:   record.CheckInCount,
		LastCheckInDay: record.LastCheckInDay,
	}, nil
}

// CheckIn pays the daily reward into the caller's inventory at most once
// per UTC day.
func (m *Manager) CheckIn(ctx context.Context, identity string) (View, error) {
	if m == nil || m.store == nil {
		return View{}, fmt.Errorf("profile manager is not configured")
	}

	day := m.clock().UTC().Format(time.DateOnly)
	err := m.store.RecordCheckIn(ctx, strings.TrimSpace(identity), day, CheckInReward)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return View{}, domain.ErrNotMember
	case errors.Is(err, storage.ErrAlreadyCheckedIn):
		return View{}, domain.ErrAlreadyCheckedIn
	case err != nil:
		return View{}, fmt.Errorf("record check-in: %w", err)
	}
	return m.Profile(ctx, identity)
}
