// room/room.go
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/heist/challenge"
	"github.com/wfunc/heist/floormap"
	"github.com/wfunc/heist/heist"
	"github.com/wfunc/heist/lobby"
	"github.com/wfunc/heist/logger"
	"github.com/wfunc/heist/network"
	"github.com/wfunc/heist/session"
)

var (
	// ErrCannotSend is returned for input from a player without send access.
	ErrCannotSend = errors.New("room: player may not send to this channel")
	ErrRoomFull   = errors.New("room: crew is complete")
)

// RoomStatus 表示房间的业务状态，例如等待、游戏中等
type RoomStatus int

const (
	StatusIdle RoomStatus = iota
	StatusWaiting
	StatusGaming
	StatusSettlement
)

func (s RoomStatus) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusGaming:
		return "gaming"
	case StatusSettlement:
		return "settlement"
	default:
		return "idle"
	}
}

// Settings 房间配置
type Settings struct {
	LobbyDuration time.Duration
	Heist         heist.Config
	WallBase      int
	ObstacleRatio float64
}

// DefaultSettings returns a one-minute recruitment window and the stock heist.
func DefaultSettings() Settings {
	return Settings{
		LobbyDuration: time.Minute,
		Heist:         heist.DefaultConfig(),
		WallBase:      floormap.DefaultWallBase,
		ObstacleRatio: floormap.DefaultObstacleRatio,
	}
}

// Env 房间运行所需的协作者
type Env struct {
	Settings   Settings
	NewChannel ChannelFactory
	Ledger     heist.Ledger
	Recorder   Recorder
	Observer   heist.Observer
}

// Room 是劫案房间的核心结构
type Room struct {
	ID          string
	Name        string
	MaxPlayers  int
	Status      RoomStatus
	Players     map[string]*session.Session // sessionID -> session
	CreatedAt   time.Time
	Lobby       *lobby.Lobby
	Channel     Channel
	env         Env
	broadcaster Broadcaster // Use the interface, not the concrete type
	statusMutex sync.RWMutex
	playerMutex sync.RWMutex

	permMutex sync.RWMutex
	canSend   map[string]bool // playerID -> 发言权限

	heistMutex sync.Mutex
	heist      *heist.Session
	result     heist.Result
	closeOnce  sync.Once
	closeChan  chan struct{}
}

// NewRoom 创建一个新房间
func NewRoom(id, name string, env Env, broadcaster Broadcaster) *Room {
	room := &Room{
		ID:          id,
		Name:        name,
		MaxPlayers:  len(lobby.Roles),
		Players:     make(map[string]*session.Session),
		CreatedAt:   time.Now(),
		Lobby:       lobby.New(nil),
		env:         env,
		broadcaster: broadcaster,
		canSend:     make(map[string]bool),
		closeChan:   make(chan struct{}),
	}
	room.Channel = env.NewChannel(id, broadcaster)
	room.SetStatus(StatusWaiting)
	return room
}

// GetID 返回房间ID
func (r *Room) GetID() string {
	return r.ID
}

// Broadcast sends a message to all players in the room.
func (r *Room) Broadcast(msgID uint16, data []byte) error {
	return r.broadcaster.BroadcastToRoom(r.ID, msgID, data)
}

// --- 房间核心逻辑 ---

// Join 加入招募。只有取得角色的连接会留在房间里
func (r *Room) Join(s *session.Session) (lobby.JoinStatus, lobby.Role) {
	status, role := r.Lobby.Join(s.Player())
	if status == lobby.JoinClosed {
		return status, role
	}
	r.AddPlayer(s)
	logger.Log.Infof("room %s: player %s join %s as %s", r.ID, s.Player(), status, role)
	return status, role
}

// AddPlayer 添加一个连接到房间
func (r *Room) AddPlayer(s *session.Session) bool {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	r.Players[s.ID] = s
	s.SetRoom(r.ID)
	return true
}

// RemovePlayer 从房间移除一个连接。玩家最后一个连接断开时，进行中的劫案将其标记为缺席
func (r *Room) RemovePlayer(sessionID string) {
	r.playerMutex.Lock()
	player, exists := r.Players[sessionID]
	if !exists {
		r.playerMutex.Unlock()
		return
	}
	player.SetRoom("")
	delete(r.Players, sessionID)
	playerID := player.Player()
	remaining := 0
	for _, s := range r.Players {
		if s.Player() == playerID {
			remaining++
		}
	}
	r.playerMutex.Unlock()

	if remaining > 0 {
		return
	}
	if h := r.Heist(); h != nil {
		h.MarkAbsent(playerID)
		logger.Log.Infof("room %s: player %s left mid-heist", r.ID, playerID)
	}
}

// GetPlayer 获取单个连接
func (r *Room) GetPlayer(sessionID string) (*session.Session, bool) {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	player, exists := r.Players[sessionID]
	return player, exists
}

// GetSessions returns a slice of all sessions in the room (thread-safe).
func (r *Room) GetSessions() []*session.Session {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	sessions := make([]*session.Session, 0, len(r.Players))
	for _, s := range r.Players {
		sessions = append(sessions, s)
	}
	return sessions
}

// SetStatus 设置房间的业务状态
func (r *Room) SetStatus(status RoomStatus) {
	r.statusMutex.Lock()
	defer r.statusMutex.Unlock()
	r.Status = status
}

// GetStatus 获取房间的业务状态
func (r *Room) GetStatus() RoomStatus {
	r.statusMutex.RLock()
	defer r.statusMutex.RUnlock()
	return r.Status
}

// --- 发言权限 ---

func (r *Room) GrantSend(ctx context.Context, playerID string) error {
	r.permMutex.Lock()
	defer r.permMutex.Unlock()
	r.canSend[playerID] = true
	return nil
}

func (r *Room) RevokeSend(ctx context.Context, playerID string) error {
	r.permMutex.Lock()
	defer r.permMutex.Unlock()
	delete(r.canSend, playerID)
	return nil
}

func (r *Room) CanSend(playerID string) bool {
	r.permMutex.RLock()
	defer r.permMutex.RUnlock()
	return r.canSend[playerID]
}

// Input 转发玩家输入到房间频道
func (r *Room) Input(s *session.Session, content string) error {
	playerID := s.Player()
	if !r.CanSend(playerID) {
		return ErrCannotSend
	}
	r.Channel.Deliver(heist.Input{ParticipantID: playerID, Content: content, At: time.Now()})
	return nil
}

// --- 生命周期 ---

// Heist 返回进行中的劫案，招募阶段为 nil
func (r *Room) Heist() *heist.Session {
	r.heistMutex.Lock()
	defer r.heistMutex.Unlock()
	return r.heist
}

// Result 返回劫案结果
func (r *Room) Result() heist.Result {
	r.heistMutex.Lock()
	defer r.heistMutex.Unlock()
	return r.result
}

// Run 开放招募，满员后执行劫案，直到结束或 ctx 取消
func (r *Room) Run(ctx context.Context) heist.Result {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-r.closeChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	defer r.Channel.Close()

	settings := r.env.Settings
	r.post(ctx, fmt.Sprintf("A heist is being planned in %s. Join within %s to take one of the %d roles.",
		r.Name, settings.LobbyDuration, r.MaxPlayers))

	roster, outcome := r.Lobby.Wait(ctx, settings.LobbyDuration)
	if outcome != lobby.ResultFull {
		result := heist.Result{
			Outcome: heist.OutcomeFailure,
			Reason:  fmt.Sprintf("Not enough crew showed up (%d/%d). The heist is off.", len(roster), r.MaxPlayers),
		}
		r.post(ctx, result.Reason)
		r.finish(ctx, roster, result, false)
		return result
	}

	gen := floormap.NewGenerator(settings.Heist.BaseSize, settings.Heist.MaxVaults, nil)
	gen.WallBase = settings.WallBase
	gen.ObstacleRatio = settings.ObstacleRatio

	h := heist.New(settings.Heist, roster, heist.Deps{
		Channel:     r.Channel,
		Permissions: r,
		Ledger:      r.env.Ledger,
		Maps:        gen,
		Puzzles:     challenge.NewSource(nil),
		Observer:    r.env.Observer,
	})
	for _, id := range roster.IDs() {
		if !r.connected(id) {
			h.MarkAbsent(id)
		}
	}

	r.heistMutex.Lock()
	r.heist = h
	r.heistMutex.Unlock()
	r.SetStatus(StatusGaming)
	logger.Log.Infof("room %s: heist %s started", r.ID, h.ID)

	result := h.Run(ctx)
	r.finish(context.Background(), roster, result, true)
	return result
}

func (r *Room) finish(ctx context.Context, roster lobby.Roster, result heist.Result, ran bool) {
	r.heistMutex.Lock()
	r.result = result
	r.heistMutex.Unlock()
	r.SetStatus(StatusSettlement)

	outcome := result.Outcome.String()
	if !ran {
		outcome = "cancelled"
	}
	data, _ := json.Marshal(network.HeistEnd{
		RoomID:         r.ID,
		Outcome:        outcome,
		Reason:         result.Reason,
		Floor:          result.Floor,
		VaultsObtained: result.VaultsObtained,
		PayoutEach:     result.PayoutEach,
	})
	if err := r.Broadcast(network.MsgTypeHeistEnd, data); err != nil {
		logger.Log.Warnf("room %s: broadcast heist end: %v", r.ID, err)
	}

	if ran && r.env.Recorder != nil {
		if err := r.env.Recorder.RecordHeist(ctx, r.ID, roster, result); err != nil {
			logger.Log.Errorf("room %s: record heist: %v", r.ID, err)
		}
	}
}

func (r *Room) post(ctx context.Context, content string) {
	if _, err := r.Channel.Post(ctx, content); err != nil {
		logger.Log.Warnf("room %s: post: %v", r.ID, err)
	}
}

func (r *Room) connected(playerID string) bool {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	for _, s := range r.Players {
		if s.Player() == playerID {
			return true
		}
	}
	return false
}

// Close 关闭房间，中止进行中的劫案
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.closeChan)
		if h := r.Heist(); h != nil {
			h.Abort("the room was closed")
		}
	})
}

// --- 房间管理器 ---

// Manager 管理所有房间
type Manager struct {
	rooms map[string]*Room
	env   Env
	mutex sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(env Env) *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
		env:   env,
	}
}

// CreateRoom 创建一个新房间并添加到管理器
func (m *Manager) CreateRoom(id, name string, broadcaster Broadcaster) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room := NewRoom(id, name, m.env, broadcaster)
	m.rooms[id] = room
	return room
}

// RemoveRoom 从管理器中移除并关闭一个房间
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	room, exists := m.rooms[id]
	delete(m.rooms, id)
	m.mutex.Unlock()

	if exists {
		room.Close()
	}
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// FindAvailableRoom 查找一个仍在招募的房间
func (m *Manager) FindAvailableRoom() *Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, room := range m.rooms {
		if room.GetStatus() == StatusWaiting && len(room.Lobby.Roster()) < room.MaxPlayers {
			return room
		}
	}
	return nil
}

// Count 返回房间数量
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}
