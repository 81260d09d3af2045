package room

import (
	"context"

	"github.com/wfunc/heist/heist"
	"github.com/wfunc/heist/lobby"
)

// Broadcaster defines the interface for broadcasting messages to a room.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
}

// Channel is a room's message channel; broadcast.Channel implements it.
type Channel interface {
	heist.Channel
	Deliver(in heist.Input)
	Close()
}

// ChannelFactory builds the channel for a new room.
type ChannelFactory func(roomID string, out Broadcaster) Channel

// Recorder stores finished heists.
type Recorder interface {
	RecordHeist(ctx context.Context, roomID string, roster lobby.Roster, result heist.Result) error
}
