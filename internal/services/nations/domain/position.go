package domain

import (
	"errors"
	"strings"
	"time"
)

// LeaderTitle is the derived title reported for a nation's founder. It is
// never stored and never assignable through promotion.
const LeaderTitle = "leader"

// DefaultMemberTitle is reported for members holding no position.
const DefaultMemberTitle = "member"

var (
	// ErrEmptyTitle indicates a missing position title.
	ErrEmptyTitle = errors.New("position title is required")
	// ErrReservedTitle indicates an attempt to assign the derived leader title.
	ErrReservedTitle = errors.New("leader is a derived title and cannot be assigned")
)

// Position is a named title scoped to one nation, created lazily the first
// time it is granted.
type Position struct {
	NationID  string
	Title     string
	CreatedAt time.Time
}

// PositionAssignment grants one position to one member.
type PositionAssignment struct {
	NationID   string
	Title      string
	Identity   string
	AssignedAt time.Time
}

// NormalizePositionTitle trims and validates a position title.
func NormalizePositionTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	if strings.EqualFold(title, LeaderTitle) {
		return "", ErrReservedTitle
	}
	return title, nil
}
