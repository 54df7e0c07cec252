package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TinyAII/dqcq/internal/services/nations/domain"
	"github.com/TinyAII/dqcq/internal/services/nations/storage"
)

func pendingRequest(id, fromID, toID string, gift domain.Gift) domain.DiplomacyRequest {
	return domain.DiplomacyRequest{
		ID:        id,
		FromID:    fromID,
		ToID:      toID,
		Kind:      domain.RequestKindAlliance,
		Gift:      gift,
		Status:    domain.RequestStatusPending,
		CreatedAt: testTime,
	}
}

func TestCreateRequestEscrowsGift(t *testing.T) {
	store := openTestStore(t)
	seedNation(t, store, "nation-1", "Qin", "user-1")
	seedNation(t, store, "nation-2", "Han", "user-2")

	gift := domain.Gift{Kind: domain.ResourceGold, Amount: 300}
	err := store.CreateRequest(context.Background(), pendingRequest("req-1", "nation-1", "nation-2", gift))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	treasury, err := store.GetTreasury(context.Background(), "nation-1")
	if err != nil {
		t.Fatalf("get sender treasury: %v", err)
	}
	if treasury.Gold != 700 {
		t.Fatalf("expected 700 gold after escrow, got %d", treasury.Gold)
	}

	pending, err := store.ListPendingRequests(context.Background(), "nation-2")
	if err != nil {
		t.Fatalf("list pending requests: %v", err)
	}
	if len(pending) != 1 || pending[0].Gift != gift {
		t.Fatalf("unexpected pending requests %+v", pending)
	}
}

func TestCreateRequestInsufficientGift(t *testing.T) {
	store := openTestStore(t)
	seedNation(t, store, "nation-1", "Qin", "user-1")
	seedNation(t, store, "nation-2", "Han", "user-2")

	gift := domain.Gift{Kind: domain.ResourceJade, Amount: 5}
	err := store.CreateRequest(context.Background(), pendingRequest("req-1", "nation-1", "nation-2", gift))
	if !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	pending, err := store.ListPendingRequests(context.Background(), "nation-2")
	if err != nil {
		t.Fatalf("list pending requests: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected failed escrow to insert nothing, got %d requests", len(pending))
	}
}

func TestCreateRequestPendingPairUnique(t *testing.T) {
	store := openTestStore(t)
	seedNation(t, store, "nation-1", "Qin", "user-1")
	seedNation(t, store, "nation-2", "Han", "user-2")

	if err := store.CreateRequest(context.Background(), pendingRequest("req-1", "nation-1", "nation-2", domain.Gift{})); err != nil {
		t.Fatalf("create request: %v", err)
	}
	err := store.CreateRequest(context.Background(), pendingRequest("req-2", "nation-1", "nation-2", domain.Gift{}))
	if !errors.Is(err, storage.ErrPendingRequestExists) {
		t.Fatalf("expected ErrPendingRequestExists, got %v", err)
	}

	// The opposite direction is a distinct ordered pair.
	if err := store.CreateRequest(context.Background(), pendingRequest("req-3", "nation-2", "nation-1", domain.Gift{})); err != nil {
		t.Fatalf("create reverse request: %v", err)
	}
}

func TestResolveRequestAcceptCreditsReceiver(t *testing.T) {
	store := openTestStore(t)
	seedNation(t, store, "nation-1", "Qin", "user-1")
	seedNation(t, store, "nation-2", "Han", "user-2")

	gift := domain.Gift{Kind: domain.ResourceSilver, Amount: 200}
	if err := store.CreateRequest(context.Background(), pendingRequest("req-1", "nation-1", "nation-2", gift)); err != nil {
		t.Fatalf("create request: %v", err)
	}

	resolvedAt := testTime.Add(time.Hour)
	resolved, err := store.ResolveRequest(context.Background(), "nation-1", "nation-2", true, resolvedAt)
	if err != nil {
		t.Fatalf("resolve request: %v", err)
	}
	if resolved.Status != domain.RequestStatusAccepted {
		t.Fatalf("expected accepted status, got %q", resolved.Status)
	}

	sender, err := store.GetTreasury(context.Background(), "nation-1")
	if err != nil {
		t.Fatalf("get sender treasury: %v", err)
	}
	receiver, err := store.GetTreasury(context.Background(), "nation-2")
	if err != nil {
		t.Fatalf("get receiver treasury: %v", err)
	}
	if sender.Silver != 300 {
		t.Fatalf("expected sender silver 300, got %d", sender.Silver)
	}
	if receiver.Silver != 700 {
		t.Fatalf("expected receiver silver 700, got %d", receiver.Silver)
	}

	relations, err := store.ListRelations(context.Background(), "nation-1")
	if err != nil {
		t.Fatalf("list relations: %v", err)
	}
	if len(relations) != 1 || relations[0].Kind != domain.RelationKindFriendly {
		t.Fatalf("unexpected relations %+v", relations)
	}
}

func TestResolveRequestRejectRefundsSender(t *testing.T) {
	store := openTestStore(t)
	seedNation(t, store, "nation-1", "Qin", "user-1")
	seedNation(t, store, "nation-2", "Han", "user-2")

	gift := domain.Gift{Kind: domain.ResourceGold, Amount: 400}
	if err := store.CreateRequest(context.Background(), pendingRequest("req-1", "nation-1", "nation-2", gift)); err != nil {
		t.Fatalf("create request: %v", err)
	}

	resolved, err := store.ResolveRequest(context.Background(), "nation-1", "nation-2", false, testTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("resolve request: %v", err)
	}
	if resolved.Status != domain.RequestStatusRejected {
		t.Fatalf("expected rejected status, got %q", resolved.Status)
	}

	sender, err := store.GetTreasury(context.Background(), "nation-1")
	if err != nil {
		t.Fatalf("get sender treasury: %v", err)
	}
	if sender.Gold != 1000 {
		t.Fatalf("expected full refund to 1000 gold, got %d", sender.Gold)
	}
	relations, err := store.ListRelations(context.Background(), "nation-1")
	if err != nil {
		t.Fatalf("list relations: %v", err)
	}
	if len(relations) != 0 {
		t.Fatalf("expected no relation on reject, got %+v", relations)
	}
}

func TestResolveRequestSettlesOnce(t *testing.T) {
	store := openTestStore(t)
	seedNation(t, store, "nation-1", "Qin", "user-1")
	seedNation(t, store, "nation-2", "Han", "user-2")

	gift := domain.Gift{Kind: domain.ResourceGold, Amount: 100}
	if err := store.CreateRequest(context.Background(), pendingRequest("req-1", "nation-1", "nation-2", gift)); err != nil {
		t.Fatalf("create request: %v", err)
	}

	if _, err := store.ResolveRequest(context.Background(), "nation-1", "nation-2", true, testTime.Add(time.Hour)); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	_, err := store.ResolveRequest(context.Background(), "nation-1", "nation-2", true, testTime.Add(2*time.Hour))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second resolve, got %v", err)
	}

	receiver, err := store.GetTreasury(context.Background(), "nation-2")
	if err != nil {
		t.Fatalf("get receiver treasury: %v", err)
	}
	if receiver.Gold != 1100 {
		t.Fatalf("expected escrow credited exactly once, got %d gold", receiver.Gold)
	}
}

func TestDeleteRelation(t *testing.T) {
	store := openTestStore(t)
	seedNation(t, store, "nation-1", "Qin", "user-1")
	seedNation(t, store, "nation-2", "Han", "user-2")

	if err := store.CreateRequest(context.Background(), pendingRequest("req-1", "nation-1", "nation-2", domain.Gift{})); err != nil {
		t.Fatalf("create request: %v", err)
	}
	if _, err := store.ResolveRequest(context.Background(), "nation-1", "nation-2", true, testTime.Add(time.Hour)); err != nil {
		t.Fatalf("resolve request: %v", err)
	}

	// Either ordering of the pair removes the same relation.
	if err := store.DeleteRelation(context.Background(), "nation-2", "nation-1"); err != nil {
		t.Fatalf("delete relation: %v", err)
	}
	if err := store.DeleteRelation(context.Background(), "nation-1", "nation-2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDissolutionRefundsInboundEscrow(t *testing.T) {
	store := openTestStore(t)
	seedNation(t, store, "nation-1", "Qin", "user-1")
	seedNation(t, store, "nation-2", "Han", "user-2")

	gift := domain.Gift{Kind: domain.ResourceGold, Amount: 250}
	if err := store.CreateRequest(context.Background(), pendingRequest("req-1", "nation-1", "nation-2", gift)); err != nil {
		t.Fatalf("create request: %v", err)
	}

	// Receiver dissolves while the gifted request is still pending.
	outcome, err := store.RemoveMember(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("dissolve receiver: %v", err)
	}
	if !outcome.Dissolved {
		t.Fatal("expected dissolution")
	}

	sender, err := store.GetTreasury(context.Background(), "nation-1")
	if err != nil {
		t.Fatalf("get sender treasury: %v", err)
	}
	if sender.Gold != 1000 {
		t.Fatalf("expected escrow returned to sender, got %d gold", sender.Gold)
	}
	pending, err := store.ListPendingRequests(context.Background(), "nation-2")
	if err != nil {
		t.Fatalf("list pending requests: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected requests purged with dissolved nation, got %d", len(pending))
	}
}
