// Package war owns the war lifecycle between nations.
//
// The state machine per unordered nation pair is NoWar, Active, Ended. A
// war is declared by one founder, guarded by a per-attacker cooldown, and
// endable only by the founder of the nation that declared it.
package war

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

// DefaultHistoryLimit caps war history listings.
const DefaultHistoryLimit = 10

// View is a war decorated with the participants' nation names for display.
type View struct {
	War          domain.War
	AttackerName string
	DefenderName string
}

type warStore interface {
	storage.NationStore
	storage.MembershipStore
	storage.WarStore
}

// Manager executes war lifecycle operations.
type Manager struct {
	store warStore
	clock func() time.Time
	newID func() (string, error)
}

// NewManager creates a war manager backed by nation storage.
func NewManager(store warStore) *Manager {
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

// DeclareWar declares war on the nation with the given name. Only the
// caller's founder may declare; the attacker cooldown and the
// one-active-war-per-pair invariant are enforced in storage.
func (m *Manager) DeclareWar(ctx context.Context, identity, defenderName string) (domain.War, error) {
	if m == nil || m.store == nil {
		return domain.War{}, fmt.Errorf("war manager is not configured")
	}

	attacker, err := m.founderNation(ctx, identity)
	if err != nil {
		return domain.War{}, err
	}
	defender, err := m.lookupNationByName(ctx, defenderName)
	if err != nil {
		return domain.War{}, err
	}
	if defender.ID == attacker.ID {
		return domain.War{}, domain.ErrSelfTarget
	}

	war, err := domain.DeclareWar(domain.DeclareWarInput{
		AttackerID: attacker.ID,
		DefenderID: defender.ID,
	}, m.clock, m.newID)
	if err != nil {
		return domain.War{}, err
	}

	err = m.store.DeclareWar(ctx, war, domain.WarCooldown)
	switch {
	case errors.Is(err, storage.ErrActiveWarExists):
		return domain.War{}, domain.ErrAlreadyAtWar
	case err != nil:
		var cooldownErr *domain.CooldownError
		if errors.As(err, &cooldownErr) {
			return domain.War{}, cooldownErr
		}
		return domain.War{}, fmt.Errorf("declare war: %w", err)
	}
	return war, nil
}

// EndWar ends the active war the caller's nation declared against the named
// defender. A defender cannot end a war it did not declare.
func (m *Manager) EndWar(ctx context.Context, identity, defenderName string) error {
	if m == nil || m.store == nil {
		return fmt.Errorf("war manager is not configured")
	}

	attacker, err := m.founderNation(ctx, identity)
	if err != nil {
		return err
	}
	defender, err := m.lookupNationByName(ctx, defenderName)
	if err != nil {
		return err
	}

	err = m.store.EndWar(ctx, attacker.ID, defender.ID, m.clock().UTC())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.ErrNoActiveWar
	case err != nil:
		return fmt.Errorf("end war: %w", err)
	}
	return nil
}

// ListActiveWars returns every active war involving the caller's nation.
func (m *Manager) ListActiveWars(ctx context.Context, identity string) ([]View, error) {
	if m == nil || m.store == nil {
		return nil, fmt.Errorf("war manager is not configured")
	}

	nation, err := m.callerNation(ctx, identity)
	if err != nil {
		return nil, err
	}
	wars, err := m.store.ListActiveWars(ctx, nation.ID)
	if err != nil {
		return nil, fmt.Errorf("list active wars: %w", err)
	}
	return m.decorateWars(ctx, wars), nil
}

// ListWarHistory returns the caller's nation's most recent wars, newest
// first, capped at limit (DefaultHistoryLimit when limit is not positive).
func (m *Manager) ListWarHistory(ctx context.Context, identity string, limit int) ([]View, error) {
	if m == nil || m.store == nil {
		return nil, fmt.Errorf("war manager is not configured")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	nation, err := m.callerNation(ctx, identity)
	if err != nil {
		return nil, err
	}
	wars, err := m.store.ListWarHistory(ctx, nation.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list war history: %w", err)
	}
	return m.decorateWars(ctx, wars), nil
}

// decorateWars resolves participant names best-effort, caching lookups
// within a single listing.
func (m *Manager) decorateWars(ctx context.Context, wars []domain.War) []View {
	names := make(map[string]string, len(wars))
	resolve := func(nationID string) string {
		if name, ok := names[nationID]; ok {
			return name
		}
		name := ""
		if nation, err := m.store.GetNation(ctx, nationID); err == nil {
			name = nation.Name
		}
		names[nationID] = name
		return name
	}

	views := make([]View, 0, len(wars))
	for _, war := range wars {
		views = append(views, View{
			War:          war,
			AttackerName: resolve(war.AttackerID),
			DefenderName: resolve(war.DefenderID),
		})
	}
	return views
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
