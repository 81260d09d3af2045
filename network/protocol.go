package network

// Client -> server
const (
	MsgTypeHeartbeat   = 1
	MsgTypeCreateHeist = 101
	MsgTypeJoinHeist   = 102
	MsgTypeLeaveHeist  = 103
	MsgTypeHeistInput  = 201
)

// Server -> client
const (
	MsgTypeJoinResult = 301
	MsgTypePost       = 302
	MsgTypeEdit       = 303
	MsgTypeHeistEnd   = 304
	MsgTypeError      = 399
)

// JoinRequest 加入劫案。RoomID 为空时自动匹配可加入的房间
type JoinRequest struct {
	RoomID   string `json:"room_id,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
}

// CreateRequest 创建劫案房间
type CreateRequest struct {
	PlayerID string `json:"player_id,omitempty"`
}

// JoinResult 加入结果
type JoinResult struct {
	RoomID string `json:"room_id"`
	Status string `json:"status"`
	Role   string `json:"role,omitempty"`
}

// InputMessage 玩家输入
type InputMessage struct {
	Content string `json:"content"`
}

// PostMessage 频道消息
type PostMessage struct {
	Handle  string `json:"handle"`
	Content string `json:"content"`
}

// HeistEnd 劫案结束通知
type HeistEnd struct {
	RoomID         string `json:"room_id"`
	Outcome        string `json:"outcome"`
	Reason         string `json:"reason"`
	Floor          int    `json:"floor"`
	VaultsObtained int    `json:"vaults_obtained"`
	PayoutEach     int64  `json:"payout_each"`
}

// ErrorMessage 错误通知
type ErrorMessage struct {
	Error string `json:"error"`
}
