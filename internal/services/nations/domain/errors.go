package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotMember indicates the caller does not belong to any nation.
	ErrNotMember = errors.New("identity is not a member of any nation")
	// ErrAlreadyMember indicates the identity already belongs to a nation.
	ErrAlreadyMember = errors.New("identity already belongs to a nation")
	// ErrNotFounder indicates the caller is not the founder of their nation.
	ErrNotFounder = errors.New("caller is not the nation founder")
	// ErrInvalidName indicates a missing or unusable nation name.
	ErrInvalidName = errors.New("nation name is required")
	// ErrNameTaken indicates the nation name is already in use.
	ErrNameTaken = errors.New("nation name is already taken")
	// ErrTargetNotFound indicates the named nation does not exist.
	ErrTargetNotFound = errors.New("target nation not found")
	// ErrTargetNotMember indicates the target identity is not a member of the caller's nation.
	ErrTargetNotMember = errors.New("target is not a member of this nation")
	// ErrSelfTarget indicates an operation aimed at the caller's own nation.
	ErrSelfTarget = errors.New("target nation must differ from caller's nation")
	// ErrAlreadyAtWar indicates an active war already exists for the pair.
	ErrAlreadyAtWar = errors.New("an active war already exists between these nations")
	// ErrNoActiveWar indicates the caller's nation has no active war it declared against the target.
	ErrNoActiveWar = errors.New("no active war declared against that nation")
	// ErrPendingRequestExists indicates a pending request already exists for the ordered pair.
	ErrPendingRequestExists = errors.New("a pending diplomacy request to that nation already exists")
	// ErrNoPendingRequest indicates no pending request exists for the ordered pair.
	ErrNoPendingRequest = errors.New("no pending diplomacy request from that nation")
	// ErrInsufficientFunds indicates a debit would drive a balance negative.
	ErrInsufficientFunds = errors.New("insufficient balance")
	// ErrInsufficientGift indicates the sender treasury cannot cover the gift.
	ErrInsufficientGift = errors.New("treasury cannot cover the gift")
	// ErrNoRelation indicates no diplomatic relation exists for the pair.
	ErrNoRelation = errors.New("no diplomatic relation with that nation")
	// ErrAlreadyCheckedIn indicates the identity already checked in today.
	ErrAlreadyCheckedIn = errors.New("already checked in today")
)

// CooldownError reports how long a nation must wait before declaring again.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("war declaration on cooldown: %s remaining", e.Remaining.Truncate(time.Second))
}
