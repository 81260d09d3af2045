// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/wfunc/heist/logger"
	"github.com/wfunc/heist/room"
	"github.com/wfunc/heist/session"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
	BroadcastToAll(msgID uint16, data []byte) error
	BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) error
}

// 基于房间的广播器
type RoomBroadcaster struct {
	roomManager    *room.Manager
	sessionManager *session.Manager
}

func NewRoomBroadcaster(roomManager *room.Manager, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	r, exists := b.roomManager.GetRoom(roomID)
	if !exists {
		return ErrRoomNotFound
	}

	// Get a thread-safe copy of the sessions
	for _, s := range r.GetSessions() {
		if err := s.Send(msgID, data); err != nil {
			// 发送失败的连接由读循环负责清理
			logger.Log.Warnf("room %s: send %d to session %s: %v", roomID, msgID, s.GetID(), err)
		}
	}
	return nil
}

func (b *RoomBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.All() {
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Warnf("send %d to session %s: %v", msgID, s.GetID(), err)
		}
	}
	return nil
}

func (b *RoomBroadcaster) BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) error {
	for _, playerID := range playerIDs {
		for _, s := range b.sessionManager.GetByPlayerID(playerID) {
			if err := s.Send(msgID, data); err != nil {
				logger.Log.Warnf("send %d to player %s: %v", msgID, playerID, err)
			}
		}
	}
	return nil
}
