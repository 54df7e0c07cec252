// Package membership owns nation, membership, and position lifecycle.
package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TinyAII/dqcq/internal/platform/id"
	"github.com/TinyAII/dqcq/internal/services/nations/domain"
	"github.com/TinyAII/dqcq/internal/services/nations/storage"
)

type membershipStore interface {
	storage.NationStore
	storage.MembershipStore
	storage.PositionStore
}

// Manager executes nation and membership lifecycle operations. Every
// mutating operation is one atomic storage transaction.
type Manager struct {
	store membershipStore
	clock func() time.Time
	newID func() (string, error)
}

// NewManager creates a membership manager backed by nation storage.
func NewManager(store membershipStore) *Manager {
	return &Manager{
		store: store,
		clock: time.Now,
		newID: id.NewID,
	}
}

// WithClock overrides the manager clock.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	if clock != nil {
		m.clock = clock
	}
	return m
}

// WithIDGenerator overrides the manager id generator.
func (m *Manager) WithIDGenerator(newID func() (string, error)) *Manager {
	if newID != nil {
		m.newID = newID
	}
	return m
}

// LeaveResult reports the effect of leaving a nation.
type LeaveResult struct {
	NationName string
	Dissolved  bool
}

// MemberView is one roster entry. The founder carries the derived leader
// title; members without positions carry the default member title.
type MemberView struct {
	Identity    string
	DisplayName string
	Titles      []string
}

// CreateNation founds a new nation with the caller as founder.
func (m *Manager) CreateNation(ctx context.Context, identity, displayName, name string) (domain.Nation, error) {
	if m == nil || m.store == nil {
		return domain.Nation{}, fmt.Errorf("membership manager is not configured")
	}

	nation, founder, err := domain.FoundNation(domain.FoundNationInput{
		Name:               name,
		FounderID:          identity,
		FounderDisplayName: displayName,
	}, m.clock, m.newID)
	if err != nil {
		return domain.Nation{}, err
	}

	err = m.store.CreateNation(ctx, nation, founder, domain.FoundingTreasury())
	switch {
	case errors.Is(err, storage.ErrNameExists):
		return domain.Nation{}, domain.ErrNameTaken
	case errors.Is(err, storage.ErrMembershipExists):
		return domain.Nation{}, domain.ErrAlreadyMember
	case err != nil:
		return domain.Nation{}, fmt.Errorf("create nation: %w", err)
	}
	return nation, nil
}

// JoinNation adds the caller to the nation with the given name.
func (m *Manager) JoinNation(ctx context.Context, identity, displayName, name string) (domain.Nation, error) {
	if m == nil || m.store == nil {
		return domain.Nation{}, fmt.Errorf("membership manager is not configured")
	}

	nation, err := m.lookupNationByName(ctx, name)
	if err != nil {
		return domain.Nation{}, err
	}
	member, err := domain.JoinNation(domain.JoinNationInput{
		Identity:    identity,
		NationID:    nation.ID,
		DisplayName: displayName,
	}, m.clock)
	if err != nil {
		return domain.Nation{}, err
	}

	err = m.store.AddMember(ctx, member)
	switch {
	case errors.Is(err, storage.ErrMembershipExists):
		return domain.Nation{}, domain.ErrAlreadyMember
	case errors.Is(err, storage.ErrNotFound):
		// The nation dissolved between lookup and join.
		return domain.Nation{}, domain.ErrTargetNotFound
	case err != nil:
		return domain.Nation{}, fmt.Errorf("join nation: %w", err)
	}
	return nation, nil
}

// LeaveNation removes the caller from their nation, dissolving it when the
// last member leaves.
func (m *Manager) LeaveNation(ctx context.Context, identity string) (LeaveResult, error) {
	if m == nil || m.store == nil {
		return LeaveResult{}, fmt.Errorf("membership manager is not configured")
	}

	outcome, err := m.store.RemoveMember(ctx, strings.TrimSpace(identity))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return LeaveResult{}, domain.ErrNotMember
	case err != nil:
		return LeaveResult{}, fmt.Errorf("leave nation: %w", err)
	}
	return LeaveResult{NationName: outcome.Nation.Name, Dissolved: outcome.Dissolved}, nil
}

// DissolveNation deletes the caller's nation and every row referencing it.
// Only the founder may dissolve.
func (m *Manager) DissolveNation(ctx context.Context, identity string) error {
	if m == nil || m.store == nil {
		return fmt.Errorf("membership manager is not configured")
	}

	nation, err := m.founderNation(ctx, identity)
	if err != nil {
		return err
	}
	if err := m.store.DissolveNation(ctx, nation.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.ErrNotMember
		}
		return fmt.Errorf("dissolve nation: %w", err)
	}
	return nil
}

// Promote grants the title to a member of the caller's nation. Re-promoting
// to the same title is idempotent.
func (m *Manager) Promote(ctx context.Context, identity, targetIdentity, title string) error {
	if m == nil || m.store == nil {
		return fmt.Errorf("membership manager is not configured")
	}

	normalized, err := domain.NormalizePositionTitle(title)
	if err != nil {
		return err
	}
	nation, err := m.founderNation(ctx, identity)
	if err != nil {
		return err
	}
	target, err := m.nationMember(ctx, nation.ID, targetIdentity)
	if err != nil {
		return err
	}

	assignment := domain.PositionAssignment{
		NationID:   nation.ID,
		Title:      normalized,
		Identity:   target.Identity,
		AssignedAt: m.clock().UTC(),
	}
	if err := m.store.AssignPosition(ctx, assignment); err != nil {
		return fmt.Errorf("promote member: %w", err)
	}
	return nil
}

// Demote clears every position the target holds within the caller's nation.
// The position definitions themselves survive.
func (m *Manager) Demote(ctx context.Context, identity, targetIdentity string) error {
	if m == nil || m.store == nil {
		return fmt.Errorf("membership manager is not configured")
	}

	nation, err := m.founderNation(ctx, identity)
	if err != nil {
		return err
	}
	target, err := m.nationMember(ctx, nation.ID, targetIdentity)
	if err != nil {
		return err
	}
	if err := m.store.ClearPositions(ctx, nation.ID, target.Identity); err != nil {
		return fmt.Errorf("demote member: %w", err)
	}
	return nil
}

// ListMembers returns the caller's nation roster in join order.
func (m *Manager) ListMembers(ctx context.Context, identity string) ([]MemberView, error) {
	if m == nil || m.store == nil {
		return nil, fmt.Errorf("membership manager is not configured")
	}

	nation, err := m.callerNation(ctx, identity)
	if err != nil {
		return nil, err
	}
	records, err := m.store.ListMembers(ctx, nation.ID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	views := make([]MemberView, 0, len(records))
	for _, record := range records {
		view := MemberView{
			Identity:    record.Membership.Identity,
			DisplayName: record.Membership.DisplayName,
			Titles:      record.Titles,
		}
		switch {
		case nation.IsFounder(record.Membership.Identity):
			view.Titles = []string{domain.LeaderTitle}
		case len(view.Titles) == 0:
			view.Titles = []string{domain.DefaultMemberTitle}
		}
		views = append(views, view)
	}
	return views, nil
}

// Status returns the caller's nation summary.
func (m *Manager) Status(ctx context.Context, identity string) (domain.Nation, error) {
	if m == nil || m.store == nil {
		return domain.Nation{}, fmt.Errorf("membership manager is not configured")
	}
	return m.callerNation(ctx, identity)
}

// Nation resolves the nation a member identity belongs to. Other managers
// use it to anchor founder checks.
func (m *Manager) Nation(ctx context.Context, identity string) (domain.Nation, error) {
	return m.callerNation(ctx, identity)
}

func (m *Manager) callerNation(ctx context.Context, identity string) (domain.Nation, error) {
	member, err := m.store.GetMembership(ctx, strings.TrimSpace(identity))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.Nation{}, domain.ErrNotMember
	case err != nil:
		return domain.Nation{}, fmt.Errorf("resolve membership: %w", err)
	}
	nation, err := m.store.GetNation(ctx, member.NationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Nation{}, domain.ErrNotMember
		}
		return domain.Nation{}, fmt.Errorf("resolve nation: %w", err)
	}
	return nation, nil
}

func (m *Manager) founderNation(ctx context.Context, identity string) (domain.Nation, error) {
	nation, err := m.callerNation(ctx, identity)
	if err != nil {
		return domain.Nation{}, err
	}
	if !nation.IsFounder(strings.TrimSpace(identity)) {
		return domain.Nation{}, domain.ErrNotFounder
	}
	return nation, nil
}

func (m *Manager) nationMember(ctx context.Context, nationID, targetIdentity string) (domain.Membership, error) {
	target, err := m.store.GetMembership(ctx, strings.TrimSpace(targetIdentity))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.Membership{}, domain.ErrTargetNotMember
	case err != nil:
		return domain.Membership{}, fmt.Errorf("resolve target membership: %w", err)
	}
	if target.NationID != nationID {
		return domain.Membership{}, domain.ErrTargetNotMember
	}
	return target, nil
}

func (m *Manager) lookupNationByName(ctx context.Context, name string) (domain.Nation, error) {
	normalized := domain.NormalizeNationName(name)
	if normalized == "" {
		return domain.Nation{}, domain.ErrInvalidName
	}
	nation, err := m.store.GetNationByName(ctx, normalized)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.Nation{}, domain.ErrTargetNotFound
	case err != nil:
		return domain.Nation{}, fmt.Errorf("resolve nation by name: %w", err)
	}
	return nation, nil
}
