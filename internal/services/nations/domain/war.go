package domain

import (
	"fmt"
	"time"

	"github.com/TinyAII/dqcq/internal/platform/id"
)

// WarCooldown is the minimum wait between war declarations by one attacker.
const WarCooldown = 30 * time.Minute

// WarStatus describes the lifecycle state of a war.
type WarStatus string

const (
	// WarStatusActive indicates an ongoing war.
	WarStatusActive WarStatus = "active"
	// WarStatusEnded indicates a war ended by its declarer.
	WarStatusEnded WarStatus = "ended"
)

// War is a directed hostile edge between two nations. The attacker/defender
// direction is preserved for reporting; the at-most-one-active invariant
// holds per unordered pair.
type War struct {
	ID         string
	AttackerID string
	DefenderID string
	Status     WarStatus
	DeclaredAt time.Time
	EndedAt    time.Time
}

// DeclareWarInput describes the nations involved in a declaration.
type DeclareWarInput struct {
	AttackerID string
	DefenderID string
}

// DeclareWar creates a new active war with a generated ID.
func DeclareWar(input DeclareWarInput, now func() time.Time, idGenerator func() (string, error)) (War, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	if input.AttackerID == "" || input.DefenderID == "" {
		return War{}, fmt.Errorf("attacker and defender ids are required")
	}
	if input.AttackerID == input.DefenderID {
		return War{}, ErrSelfTarget
	}

	warID, err := idGenerator()
	if err != nil {
		return War{}, fmt.Errorf("generate war id: %w", err)
	}
	return War{
		ID:         warID,
		AttackerID: input.AttackerID,
		DefenderID: input.DefenderID,
		Status:     WarStatusActive,
		DeclaredAt: now().UTC(),
	}, nil
}

// PairKey returns the canonical (low, high) ordering for an unordered nation
// pair, used by storage uniqueness constraints.
func PairKey(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}
