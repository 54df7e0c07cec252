// Package diplomacy owns the request and relation lifecycle between
// nations.
//
// A request moves Pending to Accepted or Rejected and is retained for
// audit. An attached gift is escrowed out of the sender treasury when the
// request is created and settles exactly once on resolution.
package diplomacy

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

type diplomacyStore interface {
	storage.NationStore
	storage.MembershipStore
	storage.DiplomacyStore
}

// Manager executes diplomacy lifecycle operations.
type Manager struct {
	store diplomacyStore
	clock func() time.Time
	newID func() (string, error)
}

// NewManager creates a diplomacy manager backed by nation storage.
func NewManager(store diplomacyStore) *Manager {
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

// PendingRequest pairs a pending request with its sender's nation name.
type PendingRequest struct {
	Request  domain.DiplomacyRequest
	FromName string
}

// RelationView names the other nation of one relation.
type RelationView struct {
	OtherName string
	Kind      domain.RelationKind
	CreatedAt time.Time
}

// SendRequest sends an alliance request to the named nation, escrowing the
// gift out of the sender treasury atomically with the insert.
func (m *Manager) SendRequest(ctx context.Context, identity, toName string, gift domain.Gift) (domain.DiplomacyRequest, error) {
	if m == nil || m.store == nil {
		return domain.DiplomacyRequest{}, fmt.Errorf("diplomacy manager is not configured")
	}

	from, err := m.founderNation(ctx, identity)
	if err != nil {
		return domain.DiplomacyRequest{}, err
	}
	to, err := m.lookupNationByName(ctx, toName)
	if err != nil {
		return domain.DiplomacyRequest{}, err
	}

	request, err := domain.SendRequest(domain.SendRequestInput{
		FromID: from.ID,
		ToID:   to.ID,
		Gift:   gift,
	}, m.clock, m.newID)
	if err != nil {
		return domain.DiplomacyRequest{}, err
	}

	err = m.store.CreateRequest(ctx, request)
	switch {
	case errors.Is(err, storage.ErrPendingRequestExists):
		return domain.DiplomacyRequest{}, domain.ErrPendingRequestExists
	case errors.Is(err, storage.ErrInsufficientBalance):
		return domain.DiplomacyRequest{}, domain.ErrInsufficientGift
	case err != nil:
		return domain.DiplomacyRequest{}, fmt.Errorf("send request: %w", err)
	}
	return request, nil
}

// RespondRequest settles the pending request from the named nation to the
// caller's nation. Accepting credits the escrowed gift into the receiver
// treasury and creates a relation; rejecting refunds the sender.
func (m *Manager) RespondRequest(ctx context.Context, identity, fromName string, accept bool) (domain.DiplomacyRequest, error) {
	if m == nil || m.store == nil {
		return domain.DiplomacyRequest{}, fmt.Errorf("diplomacy manager is not configured")
	}

	to, err := m.founderNation(ctx, identity)
	if err != nil {
		return domain.DiplomacyRequest{}, err
	}
	from, err := m.lookupNationByName(ctx, fromName)
	if err != nil {
		return domain.DiplomacyRequest{}, err
	}

	request, err := m.store.ResolveRequest(ctx, from.ID, to.ID, accept, m.clock().UTC())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.DiplomacyRequest{}, domain.ErrNoPendingRequest
	case err != nil:
		return domain.DiplomacyRequest{}, fmt.Errorf("respond to request: %w", err)
	}
	return request, nil
}

// ListPendingRequests returns pending requests addressed to the caller's
// nation, oldest first. Founder only.
func (m *Manager) ListPendingRequests(ctx context.Context, identity string) ([]PendingRequest, error) {
	if m == nil || m.store == nil {
		return nil, fmt.Errorf("diplomacy manager is not configured")
	}

	nation, err := m.founderNation(ctx, identity)
	if err != nil {
		return nil, err
	}
	requests, err := m.store.ListPendingRequests(ctx, nation.ID)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}

	pending := make([]PendingRequest, 0, len(requests))
	for _, request := range requests {
		entry := PendingRequest{Request: request}
		sender, err := m.store.GetNation(ctx, request.FromID)
		if err == nil {
			entry.FromName = sender.Name
		}
		pending = append(pending, entry)
	}
	return pending, nil
}

// ListRelations returns every relation involving the caller's nation.
func (m *Manager) ListRelations(ctx context.Context, identity string) ([]RelationView, error) {
	if m == nil || m.store == nil {
		return nil, fmt.Errorf("diplomacy manager is not configured")
	}

	nation, err := m.callerNation(ctx, identity)
	if err != nil {
		return nil, err
	}
	relations, err := m.store.ListRelations(ctx, nation.ID)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}

	views := make([]RelationView, 0, len(relations))
	for _, relation := range relations {
		otherID := relation.NationA
		if otherID == nation.ID {
			otherID = relation.NationB
		}
		view := RelationView{Kind: relation.Kind, CreatedAt: relation.CreatedAt}
		other, err := m.store.GetNation(ctx, otherID)
		if err == nil {
			view.OtherName = other.Name
		}
		views = append(views, view)
	}
	return views, nil
}

// BreakRelation removes the relation between the caller's nation and the
// named nation. Founder only.
func (m *Manager) BreakRelation(ctx context.Context, identity, otherName string) error {
	if m == nil || m.store == nil {
		return fmt.Errorf("diplomacy manager is not configured")
	}

	nation, err := m.founderNation(ctx, identity)
	if err != nil {
		return err
	}
	other, err := m.lookupNationByName(ctx, otherName)
	if err != nil {
		return err
	}

	err = m.store.DeleteRelation(ctx, nation.ID, other.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.ErrNoRelation
	case err != nil:
		return fmt.Errorf("break relation: %w", err)
	}
	return nil
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
