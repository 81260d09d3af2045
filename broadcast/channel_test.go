package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/heist/heist"
	"github.com/wfunc/heist/network"
)

type sent struct {
	msgID uint16
	msg   network.PostMessage
}

// MockBroadcaster records everything sent to a room.
type MockBroadcaster struct {
	mu   sync.Mutex
	sent []sent
}

func (m *MockBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	var msg network.PostMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sent{msgID, msg})
	return nil
}

func from(id string) func(heist.Input) bool {
	return func(in heist.Input) bool { return in.ParticipantID == id }
}

func anyone(heist.Input) bool { return true }

func TestChannel_PostAndEdit(t *testing.T) {
	b := &MockBroadcaster{}
	c := NewChannel("room1", b)
	ctx := context.Background()

	h, err := c.Post(ctx, "hello")
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if err := c.Edit(ctx, h, "hello, edited"); err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if err := c.Edit(ctx, "missing", "x"); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Expected ErrUnknownHandle, got %v", err)
	}

	if len(b.sent) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(b.sent))
	}
	if b.sent[0].msgID != network.MsgTypePost || b.sent[0].msg.Content != "hello" {
		t.Errorf("Unexpected post %+v", b.sent[0])
	}
	if b.sent[1].msgID != network.MsgTypeEdit || b.sent[1].msg.Handle != string(h) {
		t.Errorf("Unexpected edit %+v", b.sent[1])
	}
}

func TestChannel_DiscardsInputBeforePost(t *testing.T) {
	c := NewChannel("room1", &MockBroadcaster{})
	ctx := context.Background()

	c.Deliver(heist.Input{ParticipantID: "p1", Content: "early"})
	h, _ := c.Post(ctx, "go")
	c.Deliver(heist.Input{ParticipantID: "p1", Content: "late"})

	in, err := c.AwaitInput(ctx, h, anyone)
	if err != nil {
		t.Fatalf("AwaitInput failed: %v", err)
	}
	if in.Content != "late" {
		t.Errorf("Expected late, got %s", in.Content)
	}
	if in.At.IsZero() {
		t.Error("Expected arrival time to be stamped")
	}
}

func TestChannel_FilterSkipsOthers(t *testing.T) {
	c := NewChannel("room1", &MockBroadcaster{})
	ctx := context.Background()
	h, _ := c.Post(ctx, "who?")

	c.Deliver(heist.Input{ParticipantID: "p2", Content: "me"})
	c.Deliver(heist.Input{ParticipantID: "p1", Content: "first"})
	c.Deliver(heist.Input{ParticipantID: "p1", Content: "second"})

	in, err := c.AwaitInput(ctx, h, from("p1"))
	if err != nil || in.Content != "first" {
		t.Fatalf("Expected first, got %q (%v)", in.Content, err)
	}
	in, err = c.AwaitInput(ctx, h, from("p1"))
	if err != nil || in.Content != "second" {
		t.Fatalf("Expected second, got %q (%v)", in.Content, err)
	}
	in, err = c.AwaitInput(ctx, h, from("p2"))
	if err != nil || in.Content != "me" {
		t.Fatalf("Expected me, got %q (%v)", in.Content, err)
	}
}

func TestChannel_AwaitWakesOnDeliver(t *testing.T) {
	c := NewChannel("room1", &MockBroadcaster{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	h, _ := c.Post(ctx, "waiting")

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.Deliver(heist.Input{ParticipantID: "p1", Content: "now"})
	}()

	in, err := c.AwaitInput(ctx, h, anyone)
	if err != nil {
		t.Fatalf("AwaitInput failed: %v", err)
	}
	if in.Content != "now" {
		t.Errorf("Expected now, got %s", in.Content)
	}
}

func TestChannel_AwaitTimeout(t *testing.T) {
	c := NewChannel("room1", &MockBroadcaster{})
	h, _ := c.Post(context.Background(), "silence")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.AwaitInput(ctx, h, anyone); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
	if _, err := c.AwaitInput(ctx, "missing", anyone); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Expected ErrUnknownHandle, got %v", err)
	}
}

func TestChannel_Close(t *testing.T) {
	c := NewChannel("room1", &MockBroadcaster{})
	h, _ := c.Post(context.Background(), "last call")

	errs := make(chan error, 1)
	go func() {
		_, err := c.AwaitInput(context.Background(), h, anyone)
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)
	c.Close()
	c.Close()

	select {
	case err := <-errs:
		if !errors.Is(err, ErrChannelClosed) {
			t.Errorf("Expected ErrChannelClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitInput did not return after Close")
	}
	if _, err := c.Post(context.Background(), "after"); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Expected ErrChannelClosed, got %v", err)
	}
}
