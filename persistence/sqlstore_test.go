package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/wfunc/heist/models"
)

var (
	_ Database = (*SQLStore)(nil)
	_ Database = (*GormPostgreSQL)(nil)
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "heist.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLStore_CreditAndBalance(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Balance(ctx, "alice"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound for an unknown account, got %v", err)
	}

	balance, err := store.Credit(ctx, "alice", 1000)
	if err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if balance != 1000 {
		t.Errorf("Expected balance 1000, got %d", balance)
	}

	balance, err = store.Credit(ctx, "alice", 2500)
	if err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if balance != 3500 {
		t.Errorf("Expected balance 3500, got %d", balance)
	}

	got, err := store.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if got != 3500 {
		t.Errorf("Expected stored balance 3500, got %d", got)
	}
}

func TestSQLStore_HeistRecords(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, outcome := range []string{"failure", "success", "success"} {
		rec := &models.HeistRecord{
			RoomID:         "room-1",
			Outcome:        outcome,
			Reason:         "test",
			Floor:          i + 1,
			VaultsObtained: i,
			PayoutEach:     int64(i * 1000),
			Crew: []models.CrewMember{
				{PlayerID: "alice", Role: "Navigator", Payout: int64(i * 1000)},
				{PlayerID: "bob", Role: "Gunner", Payout: int64(i * 1000)},
			},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveHeistRecord(ctx, rec); err != nil {
			t.Fatalf("SaveHeistRecord failed: %v", err)
		}
		if rec.ID == 0 {
			t.Error("Expected SaveHeistRecord to assign an id")
		}
	}

	records, err := store.RecentHeistRecords(ctx, 2)
	if err != nil {
		t.Fatalf("RecentHeistRecords failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].Floor != 3 || records[1].Floor != 2 {
		t.Errorf("Expected newest first (floors 3, 2), got %d, %d", records[0].Floor, records[1].Floor)
	}
	if len(records[0].Crew) != 2 || records[0].Crew[1].Role != "Gunner" {
		t.Errorf("Expected crew to round-trip, got %+v", records[0].Crew)
	}
}

func TestSQLStore_Rebind(t *testing.T) {
	pg := &SQLStore{driver: DriverPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("Expected postgres placeholders, got %q", got)
	}
	lite := &SQLStore{driver: DriverSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("Expected sqlite placeholders untouched, got %q", got)
	}
}
