package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/heist/heist"
	"github.com/wfunc/heist/network"
	"github.com/wfunc/heist/room"
)

var (
	ErrUnknownHandle = errors.New("broadcast: unknown message handle")
	ErrChannelClosed = errors.New("broadcast: channel closed")
)

type queued struct {
	seq uint64
	in  heist.Input
}

// Channel is the messaging channel of one room. Posts and edits go out to
// every connection in the room; player input is queued by Deliver and handed
// to AwaitInput callers.
type Channel struct {
	roomID string
	out    room.Broadcaster

	mu     sync.Mutex
	seq    uint64
	posted map[heist.MessageHandle]uint64
	inputs []queued
	wake   chan struct{}
	closed bool
}

func NewChannel(roomID string, out room.Broadcaster) *Channel {
	return &Channel{
		roomID: roomID,
		out:    out,
		posted: make(map[heist.MessageHandle]uint64),
		wake:   make(chan struct{}),
	}
}

// NewRoomChannel adapts NewChannel to room.ChannelFactory.
func NewRoomChannel(roomID string, out room.Broadcaster) room.Channel {
	return NewChannel(roomID, out)
}

func (c *Channel) Post(ctx context.Context, content string) (heist.MessageHandle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	handle := heist.MessageHandle(uuid.New().String())

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrChannelClosed
	}
	c.seq++
	c.posted[handle] = c.seq
	c.mu.Unlock()

	if err := c.send(network.MsgTypePost, handle, content); err != nil {
		return "", err
	}
	return handle, nil
}

func (c *Channel) Edit(ctx context.Context, handle heist.MessageHandle, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	_, ok := c.posted[handle]
	c.mu.Unlock()
	if !ok {
		return ErrUnknownHandle
	}
	return c.send(network.MsgTypeEdit, handle, content)
}

func (c *Channel) send(msgID uint16, handle heist.MessageHandle, content string) error {
	data, err := json.Marshal(network.PostMessage{Handle: string(handle), Content: content})
	if err != nil {
		return err
	}
	return c.out.BroadcastToRoom(c.roomID, msgID, data)
}

// Deliver queues one line of player input.
func (c *Channel) Deliver(in heist.Input) {
	if in.At.IsZero() {
		in.At = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.seq++
	c.inputs = append(c.inputs, queued{seq: c.seq, in: in})
	close(c.wake)
	c.wake = make(chan struct{})
}

// AwaitInput returns the first queued input that arrived after handle was
// posted and passes filter. Input that arrived earlier is discarded.
func (c *Channel) AwaitInput(ctx context.Context, handle heist.MessageHandle, filter func(heist.Input) bool) (heist.Input, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return heist.Input{}, ErrChannelClosed
		}
		since, ok := c.posted[handle]
		if !ok {
			c.mu.Unlock()
			return heist.Input{}, ErrUnknownHandle
		}
		if in, found := c.take(since, filter); found {
			c.mu.Unlock()
			return in, nil
		}
		wake := c.wake
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return heist.Input{}, ctx.Err()
		case <-wake:
		}
	}
}

// take must be called with c.mu held.
func (c *Channel) take(since uint64, filter func(heist.Input) bool) (heist.Input, bool) {
	kept := c.inputs[:0]
	var (
		found heist.Input
		ok    bool
	)
	for _, q := range c.inputs {
		switch {
		case q.seq <= since:
			// stale
		case !ok && filter(q.in):
			found, ok = q.in, true
		default:
			kept = append(kept, q)
		}
	}
	c.inputs = kept
	return found, ok
}

// Close wakes every waiter with ErrChannelClosed and drops further input.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.inputs = nil
	close(c.wake)
}
