package domain

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/TinyAII/dqcq/internal/platform/id"
)

// Nation represents one player-founded group.
type Nation struct {
	ID              string
	Name            string
	FounderID       string
	MemberCount     int
	LastWarDeclared time.Time
	CreatedAt       time.Time
}

// FoundNationInput describes the metadata needed to found a nation.
type FoundNationInput struct {
	Name               string
	FounderID          string
	FounderDisplayName string
}

// FoundNation creates a new nation with a generated ID, its founder's
// membership, and a founding treasury, all sharing one creation timestamp.
func FoundNation(input FoundNationInput, now func() time.Time, idGenerator func() (string, error)) (Nation, Membership, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeFoundNationInput(input)
	if err != nil {
		return Nation{}, Membership{}, err
	}

	nationID, err := idGenerator()
	if err != nil {
		return Nation{}, Membership{}, fmt.Errorf("generate nation id: %w", err)
	}

	createdAt := now().UTC()
	nation := Nation{
		ID:          nationID,
		Name:        normalized.Name,
		FounderID:   normalized.FounderID,
		MemberCount: 1,
		CreatedAt:   createdAt,
	}
	founder := Membership{
		Identity:    normalized.FounderID,
		NationID:    nationID,
		DisplayName: normalized.FounderDisplayName,
		JoinedAt:    createdAt,
	}
	return nation, founder, nil
}

// NormalizeFoundNationInput trims and validates nation founding metadata.
func NormalizeFoundNationInput(input FoundNationInput) (FoundNationInput, error) {
	input.Name = NormalizeNationName(input.Name)
	if input.Name == "" {
		return FoundNationInput{}, ErrInvalidName
	}
	input.FounderID = strings.TrimSpace(input.FounderID)
	if input.FounderID == "" {
		return FoundNationInput{}, fmt.Errorf("founder identity is required")
	}
	input.FounderDisplayName = strings.TrimSpace(input.FounderDisplayName)
	if input.FounderDisplayName == "" {
		input.FounderDisplayName = input.FounderID
	}
	return input, nil
}

// NormalizeNationName canonicalizes a nation name for storage and lookup.
// Names are NFC-normalized so differently composed CJK input still collides
// on the uniqueness constraint.
func NormalizeNationName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// IsFounder reports whether identity is the founder (derived leader) of n.
func (n Nation) IsFounder(identity string) bool {
	return n.FounderID != "" && n.FounderID == identity
}
