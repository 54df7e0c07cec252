package membership

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

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store, err := sqlite.Open(t.TempDir() + "/nations.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sequence := 0
	return NewManager(store).
		WithClock(func() time.Time { return testTime }).
		WithIDGenerator(func() (string, error) {
			sequence++
			return fmt.Sprintf("id-%04d", sequence), nil
		})
}

func TestCreateNation(t *testing.T) {
	manager := newTestManager(t)

	nation, err := manager.CreateNation(context.Background(), "user-1", "Zheng", "Qin")
	if err != nil {
		t.Fatalf("create nation: %v", err)
	}
	if nation.Name != "Qin" || nation.FounderID != "user-1" {
		t.Fatalf("unexpected nation %+v", nation)
	}

	status, err := manager.Status(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.MemberCount != 1 {
		t.Fatalf("expected member count 1, got %d", status.MemberCount)
	}
}

func TestCreateNationNameTaken(t *testing.T) {
	manager := newTestManager(t)
	if _, err := manager.CreateNation(context.Background(), "user-1", "", "Qin"); err != nil {
		t.Fatalf("create nation: %v", err)
	}
	if _, err := manager.CreateNation(context.Background(), "user-2", "", "Qin"); !errors.Is(err, domain.ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}
	// Leading whitespace normalizes to the same name.
	if _, err := manager.CreateNation(context.Background(), "user-3", "", "  Qin "); !errors.Is(err, domain.ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken for normalized duplicate, got %v", err)
	}
}

func TestCreateNationAlreadyMember(t *testing.T) {
	manager := newTestManager(t)
	if _, err := manager.CreateNation(context.Background(), "user-1", "", "Qin"); err != nil {
		t.Fatalf("create nation: %v", err)
	}
	if _, err := manager.CreateNation(context.Background(), "user-1", "", "Han"); !errors.Is(err, domain.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
}

func TestCreateNationInvalidName(t *testing.T) {
	manager := newTestManager(t)
	if _, err := manager.CreateNation(context.Background(), "user-1", "", "   "); !errors.Is(err, domain.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestJoinNation(t *testing.T) {
	manager := newTestManager(t)
	if _, err := manager.CreateNation(context.Background(), "user-1", "", "Qin"); err != nil {
		t.Fatalf("create nation: %v", err)
	}

	nation, err := manager.JoinNation(context.Background(), "user-2", "Li Si", "Qin")
	if err != nil {
		t.Fatalf("join nation: %v", err)
	}
	if nation.Name != "Qin" {
		t.Fatalf("expected to join Qin, got %q", nation.Name)
	}

	if _, err := manager.JoinNation(context.Background(), "user-2", "", "Qin"); !errors.Is(err, domain.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
	if _, err := manager.JoinNation(context.Background(), "user-3", "", "Wei"); !errors.Is(err, domain.ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestLeaveNation(t *testing.T) {
	manager := newTestManager(t)
	if _, err := manager.CreateNation(context.Background(), "user-1", "", "Han"); err != nil {
		t.Fatalf("create nation: %v", err)
	}
	if _, err := manager.JoinNation(context.Background(), "user-2", "", "Han"); err != nil {
		t.Fatalf("join nation: %v", err)
	}

	result, err := manager.LeaveNation(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("leave nation: %v", err)
	}
	if result.Dissolved || result.NationName != "Han" {
		t.Fatalf("unexpected leave result %+v", result)
	}

	result, err = manager.LeaveNation(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("founder leave: %v", err)
	}
	if !result.Dissolved {
		t.Fatal("expected dissolution when the founder is the last member")
	}

	if _, err := manager.Status(context.Background(), "user-1"); !errors.Is(err, domain.ErrNotMember) {
		t.Fatalf("expected ErrNotMember after dissolution, got %v", err)
	}
	if _, err := manager.LeaveNation(context.Background(), "user-1"); !errors.Is(err, domain.ErrNotMember) {
		t.Fatalf("expected ErrNotMember on double leave, got %v", err)
	}
}

func TestDissolveNationFounderOnly(t *testing.T) {
	manager := newTestManager(t)
	if _, err := manager.CreateNation(context.Background(), "user-1", "", "Qin"); err != nil {
		t.Fatalf("create nation: %v", err)
	}
	if _, err := manager.JoinNation(context.Background(), "user-2", "", "Qin"); err != nil {
		t.Fatalf("join nation: %v", err)
	}

	if err := manager.DissolveNation(context.Background(), "user-2"); !errors.Is(err, domain.ErrNotFounder) {
		t.Fatalf("expected ErrNotFounder, got %v", err)
	}
	if err := manager.DissolveNation(context.Background(), "user-3"); !errors.Is(err, domain.ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
	if err := manager.DissolveNation(context.Background(), "user-1"); err != nil {
		t.Fatalf("dissolve nation: %v", err)
	}
	if _, err := manager.Status(context.Background(), "user-2"); !errors.Is(err, domain.ErrNotMember) {
		t.Fatalf("expected members evicted by dissolution, got %v", err)
	}
}

func TestPromoteAndDemote(t *testing.T) {
	manager := newTestManager(t)
	if _, err := manager.CreateNation(context.Background(), "user-1", "Zheng", "Qin"); err != nil {
		t.Fatalf("create nation: %v", err)
	}
	if _, err := manager.JoinNation(context.Background(), "user-2", "Li Si", "Qin"); err != nil {
		t.Fatalf("join nation: %v", err)
	}

	if err := manager.Promote(context.Background(), "user-1", "user-2", "chancellor"); err != nil {
		t.Fatalf("promote: %v", err)
	}
	// Idempotent re-promotion.
	if err := manager.Promote(context.Background(), "user-1", "user-2", "chancellor"); err != nil {
		t.Fatalf("re-promote: %v", err)
	}
	if err := manager.Promote(context.Background(), "user-2", "user-1", "scribe"); !errors.Is(err, domain.ErrNotFounder) {
		t.Fatalf("expected ErrNotFounder, got %v", err)
	}
	if err := manager.Promote(context.Background(), "user-1", "user-3", "scribe"); !errors.Is(err, domain.ErrTargetNotMember) {
		t.Fatalf("expected ErrTargetNotMember, got %v", err)
	}
	if err := manager.Promote(context.Background(), "user-1", "user-2", "Leader"); !errors.Is(err, domain.ErrReservedTitle) {
		t.Fatalf("expected ErrReservedTitle, got %v", err)
	}

	members, err := manager.ListMembers(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	byIdentity := map[string][]string{}
	for _, member := range members {
		byIdentity[member.Identity] = member.Titles
	}
	if titles := byIdentity["user-1"]; len(titles) != 1 || titles[0] != domain.LeaderTitle {
		t.Fatalf("expected founder reported as leader, got %v", titles)
	}
	if titles := byIdentity["user-2"]; len(titles) != 1 || titles[0] != "chancellor" {
		t.Fatalf("expected chancellor title, got %v", titles)
	}

	if err := manager.Demote(context.Background(), "user-1", "user-2"); err != nil {
		t.Fatalf("demote: %v", err)
	}
	members, err = manager.ListMembers(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list members after demote: %v", err)
	}
	for _, member := range members {
		if member.Identity == "user-2" {
			if len(member.Titles) != 1 || member.Titles[0] != domain.DefaultMemberTitle {
				t.Fatalf("expected demoted member to fall back to member title, got %v", member.Titles)
			}
		}
	}
}

func TestMembersFromAnotherNationAreNotTargets(t *testing.T) {
	manager := newTestManager(t)
	if _, err := manager.CreateNation(context.Background(), "user-1", "", "Qin"); err != nil {
		t.Fatalf("create Qin: %v", err)
	}
	if _, err := manager.CreateNation(context.Background(), "user-2", "", "Han"); err != nil {
		t.Fatalf("create Han: %v", err)
	}
	if err := manager.Promote(context.Background(), "user-1", "user-2", "general"); !errors.Is(err, domain.ErrTargetNotMember) {
		t.Fatalf("expected ErrTargetNotMember for a foreign member, got %v", err)
	}
}
