package diplomacy

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/TinyAII/dqcq/internal/services/nations/domain"
	"github.com/TinyAII/dqcq/internal/services/nations/storage/sqlite"
)

var testTime = time.Date(2026, time.March, 12, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, nations ...string) (*Manager, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(t.TempDir() + "/nations.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	for i, name := range nations {
		nationID := fmt.Sprintf("nation-%d", i+1)
		founderID := fmt.Sprintf("user-%d", i+1)
		err := store.CreateNation(context.Background(),
			domain.Nation{ID: nationID, Name: name, FounderID: founderID, MemberCount: 1, CreatedAt: testTime},
			domain.Membership{Identity: founderID, NationID: nationID, DisplayName: founderID, JoinedAt: testTime},
			domain.FoundingTreasury(),
		)
		if err != nil {
			t.Fatalf("seed nation %s: %v", name, err)
		}
	}

	sequence := 0
	manager := NewManager(store).
		WithClock(func() time.Time { return testTime }).
		WithIDGenerator(func() (string, error) {
			sequence++
			return fmt.Sprintf("req-%04d", sequence), nil
		})
	return manager, store
}

func TestSendRequestEscrow(t *testing.T) {
	manager, store := newTestManager(t, "Qin", "Han")

	gift := domain.Gift{Kind: domain.ResourceGold, Amount: 50}
	request, err := manager.SendRequest(context.Background(), "user-1", "Han", gift)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if request.Status != domain.RequestStatusPending {
		t.Fatalf("expected pending status, got %q", request.Status)
	}

	treasury, err := store.GetTreasury(context.Background(), "nation-1")
	if err != nil {
		t.Fatalf("get treasury: %v", err)
	}
	if treasury.Gold != 950 {
		t.Fatalf("expected 950 gold after escrow, got %d", treasury.Gold)
	}
}

func TestSendRequestGuards(t *testing.T) {
	manager, _ := newTestManager(t, "Qin", "Han")

	if _, err := manager.SendRequest(context.Background(), "ghost", "Han", domain.Gift{}); !errors.Is(err, domain.ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
	if _, err := manager.SendRequest(context.Background(), "user-1", "Wei", domain.Gift{}); !errors.Is(err, domain.ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
	if _, err := manager.SendRequest(context.Background(), "user-1", "Qin", domain.Gift{}); !errors.Is(err, domain.ErrSelfTarget) {
		t.Fatalf("expected ErrSelfTarget, got %v", err)
	}

	tooMuch := domain.Gift{Kind: domain.ResourceJade, Amount: 1}
	if _, err := manager.SendRequest(context.Background(), "user-1", "Han", tooMuch); !errors.Is(err, domain.ErrInsufficientGift) {
		t.Fatalf("expected ErrInsufficientGift, got %v", err)
	}

	if _, err := manager.SendRequest(context.Background(), "user-1", "Han", domain.Gift{}); err != nil {
		t.Fatalf("send request: %v", err)
	}
	if _, err := manager.SendRequest(context.Background(), "user-1", "Han", domain.Gift{}); !errors.Is(err, domain.ErrPendingRequestExists) {
		t.Fatalf("expected ErrPendingRequestExists, got %v", err)
	}
}

func TestRespondRequestReject(t *testing.T) {
	manager, store := newTestManager(t, "Qin", "Han")

	gift := domain.Gift{Kind: domain.ResourceGold, Amount: 50}
	if _, err := manager.SendRequest(context.Background(), "user-1", "Han", gift); err != nil {
		t.Fatalf("send request: %v", err)
	}

	request, err := manager.RespondRequest(context.Background(), "user-2", "Qin", false)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if request.Status != domain.RequestStatusRejected {
		t.Fatalf("expected rejected status, got %q", request.Status)
	}

	treasury, err := store.GetTreasury(context.Background(), "nation-1")
	if err != nil {
		t.Fatalf("get treasury: %v", err)
	}
	if treasury.Gold != 1000 {
		t.Fatalf("expected full refund, got %d gold", treasury.Gold)
	}

	relations, err := manager.ListRelations(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list relations: %v", err)
	}
	if len(relations) != 0 {
		t.Fatalf("expected no relations after reject, got %+v", relations)
	}
}

func TestRespondRequestAccept(t *testing.T) {
	manager, store := newTestManager(t, "Qin", "Han")

	gift := domain.Gift{Kind: domain.ResourceSilver, Amount: 120}
	if _, err := manager.SendRequest(context.Background(), "user-1", "Han", gift); err != nil {
		t.Fatalf("send request: %v", err)
	}

	request, err := manager.RespondRequest(context.Background(), "user-2", "Qin", true)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if request.Status != domain.RequestStatusAccepted {
		t.Fatalf("expected accepted status, got %q", request.Status)
	}

	receiver, err := store.GetTreasury(context.Background(), "nation-2")
	if err != nil {
		t.Fatalf("get receiver treasury: %v", err)
	}
	if receiver.Silver != 620 {
		t.Fatalf("expected 620 silver, got %d", receiver.Silver)
	}

	relations, err := manager.ListRelations(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("list relations: %v", err)
	}
	if len(relations) != 1 || relations[0].OtherName != "Qin" {
		t.Fatalf("unexpected relations %+v", relations)
	}

	// Settlement happened; a second respond finds nothing pending.
	if _, err := manager.RespondRequest(context.Background(), "user-2", "Qin", true); !errors.Is(err, domain.ErrNoPendingRequest) {
		t.Fatalf("expected ErrNoPendingRequest, got %v", err)
	}
}

func TestListPendingRequests(t *testing.T) {
	manager, _ := newTestManager(t, "Qin", "Han", "Chu")

	if _, err := manager.SendRequest(context.Background(), "user-1", "Chu", domain.Gift{}); err != nil {
		t.Fatalf("send from Qin: %v", err)
	}
	if _, err := manager.SendRequest(context.Background(), "user-2", "Chu", domain.Gift{}); err != nil {
		t.Fatalf("send from Han: %v", err)
	}

	pending, err := manager.ListPendingRequests(context.Background(), "user-3")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending requests, got %d", len(pending))
	}
	if pending[0].FromName != "Qin" || pending[1].FromName != "Han" {
		t.Fatalf("expected oldest first with sender names, got %+v", pending)
	}

	// Requests addressed elsewhere stay invisible.
	empty, err := manager.ListPendingRequests(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list pending for sender: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no requests addressed to Qin, got %+v", empty)
	}
}

func TestBreakRelation(t *testing.T) {
	manager, _ := newTestManager(t, "Qin", "Han")

	if _, err := manager.SendRequest(context.Background(), "user-1", "Han", domain.Gift{}); err != nil {
		t.Fatalf("send request: %v", err)
	}
	if _, err := manager.RespondRequest(context.Background(), "user-2", "Qin", true); err != nil {
		t.Fatalf("respond: %v", err)
	}

	if err := manager.BreakRelation(context.Background(), "user-2", "Qin"); err != nil {
		t.Fatalf("break relation: %v", err)
	}
	if err := manager.BreakRelation(context.Background(), "user-1", "Han"); !errors.Is(err, domain.ErrNoRelation) {
		t.Fatalf("expected ErrNoRelation, got %v", err)
	}
}
