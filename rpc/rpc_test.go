package rpc

import (
	"context"
	"errors"
	netrpc "net/rpc"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/wfunc/heist/models"
)

// MockEconomy is a test double for the Economy interface.
type MockEconomy struct {
	balances map[string]int64
	records  []models.HeistRecord
	limit    int
}

func (m *MockEconomy) Balance(ctx context.Context, playerID string) (int64, error) {
	if playerID == "broken" {
		return 0, errors.New("ledger offline")
	}
	return m.balances[playerID], nil
}

func (m *MockEconomy) RecentHeists(ctx context.Context, limit int) ([]models.HeistRecord, error) {
	m.limit = limit
	return m.records, nil
}

func startRPC(t *testing.T, economy Economy) *netrpc.Client {
	t.Helper()
	srv, err := NewServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if err := srv.Register(NewHeistService(economy)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	go srv.Start()
	t.Cleanup(srv.Stop)

	client, err := netrpc.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestHeistService_GetBalance(t *testing.T) {
	client := startRPC(t, &MockEconomy{balances: map[string]int64{"alice": 4000}})

	var reply GetBalanceReply
	if err := client.Call("HeistService.GetBalance", &GetBalanceArgs{PlayerID: "alice"}, &reply); err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if reply.Balance != 4000 || reply.PlayerID != "alice" {
		t.Errorf("Expected alice with 4000, got %s with %d", reply.PlayerID, reply.Balance)
	}

	err := client.Call("HeistService.GetBalance", &GetBalanceArgs{PlayerID: "broken"}, &reply)
	if err == nil || err.Error() != "ledger offline" {
		t.Errorf("Expected ledger error to be returned, got %v", err)
	}
}

func TestHeistService_RecentHeists(t *testing.T) {
	economy := &MockEconomy{records: []models.HeistRecord{
		{ID: 2, RoomID: "r2", Outcome: "success", VaultsObtained: 3},
		{ID: 1, RoomID: "r1", Outcome: "failure"},
	}}
	client := startRPC(t, economy)

	var reply RecentHeistsReply
	if err := client.Call("HeistService.RecentHeists", &RecentHeistsArgs{Limit: 5}, &reply); err != nil {
		t.Fatalf("RecentHeists failed: %v", err)
	}
	if len(reply.Records) != 2 || reply.Records[0].RoomID != "r2" {
		t.Errorf("Expected two records newest first, got %+v", reply.Records)
	}
	if economy.limit != 5 {
		t.Errorf("Expected limit 5 to be passed through, got %d", economy.limit)
	}
}

func TestHealthServer_Status(t *testing.T) {
	h, err := NewHealthServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewHealthServer failed: %v", err)
	}
	go h.Start()
	defer h.Stop()

	conn, err := grpc.NewClient(h.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer conn.Close()
	client := grpc_health_v1.NewHealthClient(conn)

	check := func(service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("Check(%q) failed: %v", service, err)
		}
		return resp.GetStatus()
	}

	if got := check(HealthService); got != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Expected NOT_SERVING before startup, got %s", got)
	}
	h.SetServing(true)
	if got := check(""); got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("Expected SERVING, got %s", got)
	}
	if got := check(HealthService); got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("Expected SERVING for %s, got %s", HealthService, got)
	}
}
