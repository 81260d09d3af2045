package broadcast

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/heist/network"
	"github.com/wfunc/heist/room"
	"github.com/wfunc/heist/session"
)

// MockConnection counts the messages sent to it.
type MockConnection struct {
	mu   sync.Mutex
	sent []uint16
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msgID)
	return nil
}
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func (m *MockConnection) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func TestRoomBroadcaster(t *testing.T) {
	rooms := room.NewRoomManager(room.Env{Settings: room.DefaultSettings(), NewChannel: NewRoomChannel})
	sessions := session.NewManager()
	b := NewRoomBroadcaster(rooms, sessions)

	conns := make(map[string]*MockConnection)
	r := rooms.CreateRoom("room1", "Room 1", b)
	for _, id := range []string{"s1", "s2", "s3"} {
		conns[id] = &MockConnection{}
		s := session.NewSession(id, conns[id])
		sessions.Add(s)
		if id != "s3" {
			r.AddPlayer(s)
		}
	}

	if err := b.BroadcastToRoom("room1", network.MsgTypePost, []byte("{}")); err != nil {
		t.Fatalf("BroadcastToRoom failed: %v", err)
	}
	if conns["s1"].count() != 1 || conns["s2"].count() != 1 || conns["s3"].count() != 0 {
		t.Errorf("Expected only room members to receive, got %d/%d/%d",
			conns["s1"].count(), conns["s2"].count(), conns["s3"].count())
	}

	if err := b.BroadcastToRoom("missing", network.MsgTypePost, nil); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}

	b.BroadcastToPlayers([]string{"s3"}, network.MsgTypeError, nil)
	if conns["s3"].count() != 1 {
		t.Errorf("Expected s3 to receive 1 message, got %d", conns["s3"].count())
	}

	b.BroadcastToAll(network.MsgTypeHeistEnd, nil)
	for id, c := range conns {
		if c.count() < 2 {
			t.Errorf("Expected %s to receive the global broadcast, got %d messages", id, c.count())
		}
	}
}
