package domain

import (
	"fmt"
	"strings"
	"time"
)

// Membership binds one identity to its nation. An identity holds at most one
// membership at any time.
type Membership struct {
	Identity    string
	NationID    string
	DisplayName string
	JoinedAt    time.Time
}

// JoinNationInput describes the metadata needed to join a nation.
type JoinNationInput struct {
	Identity    string
	NationID    string
	DisplayName string
}

// JoinNation creates a membership for an identity joining an existing nation.
func JoinNation(input JoinNationInput, now func() time.Time) (Membership, error) {
	if now == nil {
		now = time.Now
	}
	input.Identity = strings.TrimSpace(input.Identity)
	if input.Identity == "" {
		return Membership{}, fmt.Errorf("identity is required")
	}
	input.NationID = strings.TrimSpace(input.NationID)
	if input.NationID == "" {
		return Membership{}, fmt.Errorf("nation id is required")
	}
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if input.DisplayName == "" {
		input.DisplayName = input.Identity
	}
	return Membership{
		Identity:    input.Identity,
		NationID:    input.NationID,
		DisplayName: input.DisplayName,
		JoinedAt:    now().UTC(),
	}, nil
}
