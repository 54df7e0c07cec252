// Package economy owns treasury and personal inventory balances. Balances
// never go negative; every adjustment is one atomic storage transaction.
package economy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TinyAII/dqcq/internal/services/nations/domain"
	"github.com/TinyAII/dqcq/internal/services/nations/storage"
)

type economyStore interface {
	storage.NationStore
	storage.MembershipStore
	storage.EconomyStore
}

// Manager executes balance reads and adjustments.
type Manager struct {
	store economyStore
}

// NewManager creates an economy manager backed by nation storage.
func NewManager(store economyStore) *Manager {
	return &Manager{store: store}
}

// ViewTreasury returns the caller's nation treasury. Only the founder may
// inspect it.
func (m *Manager) ViewTreasury(ctx context.Context, identity string) (domain.Balances, error) {
	if m == nil || m.store == nil {
		return domain.Balances{}, fmt.Errorf("economy manager is not configured")
	}

	nation, err := m.founderNation(ctx, identity)
	if err != nil {
		return domain.Balances{}, err
	}
	balances, err := m.store.GetTreasury(ctx, nation.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Balances{}, domain.ErrNotMember
		}
		return domain.Balances{}, fmt.Errorf("view treasury: %w", err)
	}
	return balances, nil
}

// ViewInventory returns the caller's personal inventory.
func (m *Manager) ViewInventory(ctx context.Context, identity string) (domain.Balances, error) {
	if m == nil || m.store == nil {
		return domain.Balances{}, fmt.Errorf("economy manager is not configured")
	}

	balances, err := m.store.GetInventory(ctx, strings.TrimSpace(identity))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.Balances{}, domain.ErrNotMember
	case err != nil:
		return domain.Balances{}, fmt.Errorf("view inventory: %w", err)
	}
	return balances, nil
}

// AdjustTreasury applies a signed delta to a nation treasury. Internal
// primitive; not exposed on the command surface.
func (m *Manager) AdjustTreasury(ctx context.Context, nationID string, delta domain.Delta) error {
	if m == nil || m.store == nil {
		return fmt.Errorf("economy manager is not configured")
	}
	err := m.store.AdjustTreasury(ctx, nationID, delta)
	if errors.Is(err, storage.ErrInsufficientBalance) {
		return domain.ErrInsufficientFunds
	}
	return err
}

// AdjustInventory applies a signed delta to a personal inventory. Internal
// primitive; not exposed on the command surface.
func (m *Manager) AdjustInventory(ctx context.Context, identity string, delta domain.Delta) error {
	if m == nil || m.store == nil {
		return fmt.Errorf("economy manager is not configured")
	}
	err := m.store.AdjustInventory(ctx, identity, delta)
	if errors.Is(err, storage.ErrInsufficientBalance) {
		return domain.ErrInsufficientFunds
	}
	return err
}

func (m *Manager) founderNation(ctx context.Context, identity string) (domain.Nation, error) {
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
	if !nation.IsFounder(member.Identity) {
		return domain.Nation{}, domain.ErrNotFounder
	}
	return nation, nil
}
