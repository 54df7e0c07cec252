// Package storage defines persistence contracts for nations service state.
//
// Every mutating operation is a single atomic transaction in the backing
// store. Uniqueness invariants (one membership per identity, one active war
// per unordered pair, one pending request per ordered pair, one relation per
// unordered pair) are enforced by storage constraints, not by prior existence
// checks, so a lost race surfaces as a typed conflict error.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/TinyAII/dqcq/internal/services/nations/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable indicates a transient storage failure eligible for retry.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrNameExists indicates the nation name uniqueness constraint fired.
	ErrNameExists = errors.New("nation name already exists")
	// ErrMembershipExists indicates the one-membership-per-identity constraint fired.
	ErrMembershipExists = errors.New("identity already has a membership")
	// ErrActiveWarExists indicates the one-active-war-per-pair constraint fired.
	ErrActiveWarExists = errors.New("active war already exists for this pair")
	// ErrPendingRequestExists indicates the one-pending-request-per-ordered-pair constraint fired.
	ErrPendingRequestExists = errors.New("pending request already exists for this pair")
	// ErrInsufficientBalance indicates a debit would drive a balance negative.
	ErrInsufficientBalance = errors.New("balance would go negative")
	// ErrAlreadyCheckedIn indicates the identity already checked in on that day.
	ErrAlreadyCheckedIn = errors.New("check-in already recorded for this day")
)

// LeaveOutcome reports the effect of removing a member.
type LeaveOutcome struct {
	Nation    domain.Nation
	Dissolved bool
}

// MemberRecord pairs a membership with the position titles it holds.
type MemberRecord struct {
	Membership domain.Membership
	Titles     []string
}

// Profile aggregates one member's identity-scoped state.
type Profile struct {
	Membership     domain.Membership
	Balances       domain.Balances
	CheckInCount   int
	LastCheckInDay string
}

// NationStore persists nation lifecycle state.
type NationStore interface {
	// CreateNation inserts the nation, its founder membership, the founding
	// treasury, and the founder's empty inventory in one transaction.
	CreateNation(ctx context.Context, nation domain.Nation, founder domain.Membership, treasury domain.Balances) error
	GetNation(ctx context.Context, nationID string) (domain.Nation, error)
	GetNationByName(ctx context.Context, name string) (domain.Nation, error)
	// DissolveNation cascades deletion of every membership, position,
	// inventory, treasury, war, and diplomacy row referencing the nation.
	// Escrowed gifts on pending requests addressed to the nation are refunded
	// to their senders within the same transaction.
	DissolveNation(ctx context.Context, nationID string) error
}

// MembershipStore persists the identity-to-nation partition.
type MembershipStore interface {
	GetMembership(ctx context.Context, identity string) (domain.Membership, error)
	// AddMember inserts the membership and an empty inventory and increments
	// the nation's member count in one transaction.
	AddMember(ctx context.Context, member domain.Membership) error
	// RemoveMember deletes the membership, its position assignments, and its
	// inventory, decrements the member count, and dissolves the nation when
	// the count reaches zero, all in one transaction.
	RemoveMember(ctx context.Context, identity string) (LeaveOutcome, error)
	ListMembers(ctx context.Context, nationID string) ([]MemberRecord, error)
}

// PositionStore persists nation-scoped titles and their assignments.
type PositionStore interface {
	// AssignPosition creates the position definition if absent and grants it
	// to the member. Re-assignment is idempotent.
	AssignPosition(ctx context.Context, assignment domain.PositionAssignment) error
	// ClearPositions removes every assignment the identity holds within the
	// nation. The position definitions themselves remain.
	ClearPositions(ctx context.Context, nationID, identity string) error
}

// EconomyStore persists treasury and personal inventory balances.
type EconomyStore interface {
	GetTreasury(ctx context.Context, nationID string) (domain.Balances, error)
	GetInventory(ctx context.Context, identity string) (domain.Balances, error)
	// AdjustTreasury applies the signed delta atomically, rejecting any
	// adjustment that would drive a balance negative.
	AdjustTreasury(ctx context.Context, nationID string, delta domain.Delta) error
	// AdjustInventory is the inventory analogue of AdjustTreasury.
	AdjustInventory(ctx context.Context, identity string, delta domain.Delta) error
}

// WarStore persists war lifecycle state.
type WarStore interface {
	// DeclareWar inserts the active war and advances the attacker's
	// last-declared timestamp in one transaction. It fails with a
	// domain.CooldownError while the attacker cooldown is running and with
	// ErrActiveWarExists when the unordered pair already has an active war.
	DeclareWar(ctx context.Context, war domain.War, cooldown time.Duration) error
	// EndWar marks the active war declared by attacker against defender as
	// ended. The row is retained.
	EndWar(ctx context.Context, attackerID, defenderID string, endedAt time.Time) error
	ListActiveWars(ctx context.Context, nationID string) ([]domain.War, error)
	ListWarHistory(ctx context.Context, nationID string, limit int) ([]domain.War, error)
}

// DiplomacyStore persists diplomacy requests and relations.
type DiplomacyStore interface {
	// CreateRequest debits any gift out of the sender treasury and inserts
	// the pending request in one transaction.
	CreateRequest(ctx context.Context, request domain.DiplomacyRequest) error
	// ResolveRequest settles the pending request from fromID to toID exactly
	// once: accept credits the gift into the receiver treasury and creates
	// the relation (a duplicate relation is swallowed); reject refunds the
	// sender. The resolved request is returned.
	ResolveRequest(ctx context.Context, fromID, toID string, accept bool, resolvedAt time.Time) (domain.DiplomacyRequest, error)
	ListPendingRequests(ctx context.Context, toID string) ([]domain.DiplomacyRequest, error)
	ListRelations(ctx context.Context, nationID string) ([]domain.DiplomacyRelation, error)
	DeleteRelation(ctx context.Context, nationA, nationB string) error
}

// ProfileStore persists identity-scoped profile state.
type ProfileStore interface {
	GetProfile(ctx context.Context, identity string) (Profile, error)
	// RecordCheckIn credits the reward and advances the check-in counter at
	// most once per day value.
	RecordCheckIn(ctx context.Context, identity, day string, reward domain.Delta) error
}
