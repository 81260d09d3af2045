package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/wfunc/heist/heist"
	"github.com/wfunc/heist/lobby"
	"github.com/wfunc/heist/persistence"
)

var _ heist.Ledger = (*EconomyService)(nil)

func newTestService(t *testing.T) *EconomyService {
	t.Helper()
	db, err := persistence.NewSQLite(filepath.Join(t.TempDir(), "economy.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewEconomyService(db)
}

func TestEconomyService_Credit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if balance, err := svc.Balance(ctx, "alice"); err != nil || balance != 0 {
		t.Errorf("Expected 0 for a new player, got %d (%v)", balance, err)
	}

	for _, amount := range []int64{0, -5} {
		if err := svc.Credit(ctx, "alice", amount); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Expected ErrInvalidAmount for %d, got %v", amount, err)
		}
	}

	if err := svc.Credit(ctx, "alice", 3000); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if err := svc.Credit(ctx, "alice", 3000); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	balance, err := svc.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 6000 {
		t.Errorf("Expected balance 6000, got %d", balance)
	}
}

func TestEconomyService_RecordHeist(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	roster := lobby.Roster{
		{ID: "alice", Role: lobby.RoleNavigator},
		{ID: "bob", Role: lobby.RoleGunner},
		{ID: "carol", Role: lobby.RoleTrapper},
		{ID: "dave", Role: lobby.RoleScout},
	}
	result := heist.Result{
		Outcome:        heist.OutcomeSuccess,
		Reason:         "Heist complete!",
		Floor:          3,
		VaultsObtained: 3,
		PayoutEach:     3000,
	}

	if err := svc.RecordHeist(ctx, "room-7", roster, result); err != nil {
		t.Fatalf("RecordHeist failed: %v", err)
	}

	records, err := svc.RecentHeists(ctx, 0)
	if err != nil {
		t.Fatalf("RecentHeists failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.RoomID != "room-7" || rec.Outcome != "success" || rec.VaultsObtained != 3 {
		t.Errorf("Expected room-7 success with 3 vaults, got %+v", rec)
	}
	if len(rec.Crew) != 4 || rec.Crew[3].Role != "Scout" || rec.Crew[3].Payout != 3000 {
		t.Errorf("Expected crew of 4 with payouts, got %+v", rec.Crew)
	}
}
