package domain

import (
	"fmt"
	"time"

	"github.com/TinyAII/dqcq/internal/platform/id"
)

// RequestKind describes what a diplomacy request proposes.
type RequestKind string

// RequestKindAlliance proposes a friendly relation between two nations.
const RequestKindAlliance RequestKind = "alliance"

// RequestStatus describes the lifecycle state of a diplomacy request.
type RequestStatus string

const (
	// RequestStatusPending indicates an unresolved request.
	RequestStatusPending RequestStatus = "pending"
	// RequestStatusAccepted indicates the receiver accepted.
	RequestStatusAccepted RequestStatus = "accepted"
	// RequestStatusRejected indicates the receiver rejected.
	RequestStatusRejected RequestStatus = "rejected"
)

// RelationKind describes the flavor of a durable relation.
type RelationKind string

// RelationKindFriendly is the default relation created by an accepted request.
const RelationKindFriendly RelationKind = "friendly"

// Gift names an escrowed resource amount attached to a request.
type Gift struct {
	Kind   Resource
	Amount int64
}

// IsZero reports whether no gift is attached.
func (g Gift) IsZero() bool {
	return g.Amount == 0
}

// DiplomacyRequest is a proposal from one nation to another, optionally
// escrowing a gift until resolution. Resolved requests are retained for audit.
type DiplomacyRequest struct {
	ID         string
	FromID     string
	ToID       string
	Kind       RequestKind
	Gift       Gift
	Status     RequestStatus
	CreatedAt  time.Time
	ResolvedAt time.Time
}

// DiplomacyRelation is a durable relation between an unordered nation pair.
type DiplomacyRelation struct {
	NationA   string
	NationB   string
	Kind      RelationKind
	CreatedAt time.Time
}

// SendRequestInput describes the metadata needed to send a request.
type SendRequestInput struct {
	FromID string
	ToID   string
	Gift   Gift
}

// SendRequest creates a new pending alliance request with a generated ID.
func SendRequest(input SendRequestInput, now func() time.Time, idGenerator func() (string, error)) (DiplomacyRequest, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	if input.FromID == "" || input.ToID == "" {
		return DiplomacyRequest{}, fmt.Errorf("from and to nation ids are required")
	}
	if input.FromID == input.ToID {
		return DiplomacyRequest{}, ErrSelfTarget
	}
	if input.Gift.Amount < 0 {
		return DiplomacyRequest{}, fmt.Errorf("gift amount must not be negative")
	}
	if input.Gift.Amount > 0 {
		if _, err := ParseResource(string(input.Gift.Kind)); err != nil {
			return DiplomacyRequest{}, err
		}
	}

	requestID, err := idGenerator()
	if err != nil {
		return DiplomacyRequest{}, fmt.Errorf("generate request id: %w", err)
	}
	return DiplomacyRequest{
		ID:        requestID,
		FromID:    input.FromID,
		ToID:      input.ToID,
		Kind:      RequestKindAlliance,
		Gift:      input.Gift,
		Status:    RequestStatusPending,
		CreatedAt: now().UTC(),
	}, nil
}
