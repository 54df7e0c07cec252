package domain

import (
	"errors"
	"strings"
)

// Resource names one tracked balance kind.
type Resource string

const (
	// ResourceGold is the primary currency.
	ResourceGold Resource = "gold"
	// ResourceSilver is the secondary currency.
	ResourceSilver Resource = "silver"
	// ResourceJade is the gift-item count.
	ResourceJade Resource = "jade"
)

// ErrUnknownResource indicates an unrecognized resource kind.
var ErrUnknownResource = errors.New("unknown resource kind")

// ParseResource maps a resource name to its Resource kind.
func ParseResource(value string) (Resource, error) {
	switch Resource(strings.ToLower(strings.TrimSpace(value))) {
	case ResourceGold:
		return ResourceGold, nil
	case ResourceSilver:
		return ResourceSilver, nil
	case ResourceJade:
		return ResourceJade, nil
	}
	return "", ErrUnknownResource
}

// Balances holds the three named resource balances. All values are
// non-negative; mutation happens only through economy debit/credit operations.
type Balances struct {
	Gold   int64
	Silver int64
	Jade   int64
}

// Get returns the balance for one resource kind.
func (b Balances) Get(kind Resource) int64 {
	switch kind {
	case ResourceGold:
		return b.Gold
	case ResourceSilver:
		return b.Silver
	case ResourceJade:
		return b.Jade
	}
	return 0
}

// Delta describes a signed adjustment to one or more balances.
type Delta map[Resource]int64

// FoundingTreasury returns the balances a new nation treasury starts with.
func FoundingTreasury() Balances {
	return Balances{Gold: 1000, Silver: 500, Jade: 0}
}
