package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/heist/broadcast"
	"github.com/wfunc/heist/heist"
	"github.com/wfunc/heist/lobby"
	"github.com/wfunc/heist/logger"
	"github.com/wfunc/heist/monitor"
	"github.com/wfunc/heist/network"
	"github.com/wfunc/heist/persistence"
	"github.com/wfunc/heist/room"
	heist_rpc "github.com/wfunc/heist/rpc"
	"github.com/wfunc/heist/services"
	"github.com/wfunc/heist/session"
)

const heartbeatInterval = 30 * time.Second

// Options 服务器配置
type Options struct {
	HTTPAddress   string
	RPCAddress    string
	HealthAddress string
	Settings      room.Settings
	Monitor       *monitor.Monitor // 可选
}

type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	economy        *services.EconomyService
	broadcaster    broadcast.Broadcaster
	rpcServer      *heist_rpc.Server
	healthServer   *heist_rpc.HealthServer
	monitor        *monitor.Monitor
	httpServer     *http.Server
	ctx            context.Context
	cancel         context.CancelFunc
}

func NewGameServer(opts Options, db persistence.Database) (*GameServer, error) {
	s := &GameServer{
		addr:           opts.HTTPAddress,
		sessionManager: session.NewManager(),
		economy:        services.NewEconomyService(db),
		monitor:        opts.Monitor,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	env := room.Env{
		Settings:   opts.Settings,
		NewChannel: broadcast.NewRoomChannel,
		Ledger:     s.economy,
		Recorder:   s.economy,
	}
	if s.monitor != nil {
		env.Observer = s.monitor
	}
	s.roomManager = room.NewRoomManager(env)

	// 初始化广播器
	s.broadcaster = broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)

	// 初始化RPC服务器
	rpcServer, err := heist_rpc.NewServer(opts.RPCAddress)
	if err != nil {
		return nil, err
	}
	// 注册RPC服务
	if err := rpcServer.Register(heist_rpc.NewHeistService(s.economy)); err != nil {
		rpcServer.Stop()
		return nil, err
	}
	s.rpcServer = rpcServer

	healthServer, err := heist_rpc.NewHealthServer(opts.HealthAddress)
	if err != nil {
		rpcServer.Stop()
		return nil, err
	}
	s.healthServer = healthServer

	return s, nil
}

// Handler serves the websocket endpoint.
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()
	go s.healthServer.Start()

	s.httpServer = &http.Server{Addr: s.addr, Handler: s.Handler()}
	s.healthServer.SetServing(true)
	logger.Log.Infof("Game server listening on %s", s.addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *GameServer) Shutdown(ctx context.Context) error {
	s.healthServer.SetServing(false)
	s.cancel()
	s.rpcServer.Stop()
	s.healthServer.Stop()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(heartbeatInterval)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	if s.monitor != nil {
		s.monitor.IncOnlinePlayers()
	}

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		if roomID := sess.Room(); roomID != "" {
			if r, exists := s.roomManager.GetRoom(roomID); exists {
				r.RemovePlayer(sess.GetID())
			}
		}
		if s.monitor != nil {
			s.monitor.DecOnlinePlayers()
		}
		wsConn.Close()
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	if s.monitor != nil {
		s.monitor.IncMessagesReceived()
		defer func() { s.monitor.ObserveMessageLatency(time.Since(start)) }()
	}

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeCreateHeist:
		s.handleCreateHeist(sess, packet)
	case network.MsgTypeJoinHeist:
		s.handleJoinHeist(sess, packet)
	case network.MsgTypeLeaveHeist:
		s.handleLeaveHeist(sess, packet)
	case network.MsgTypeHeistInput:
		s.handleHeistInput(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *GameServer) handleCreateHeist(sess *session.Session, packet *network.Packet) {
	var req network.CreateRequest
	if len(packet.Data) > 0 {
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			s.sendError(sess, "malformed create request")
			return
		}
	}
	sess.SetPlayerID(req.PlayerID)

	r := s.createRoom()
	logger.Log.Infof("Session %s created heist room %s", sess.GetID(), r.ID)
	s.join(sess, r)
}

func (s *GameServer) handleJoinHeist(sess *session.Session, packet *network.Packet) {
	var req network.JoinRequest
	if len(packet.Data) > 0 {
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			s.sendError(sess, "malformed join request")
			return
		}
	}
	sess.SetPlayerID(req.PlayerID)

	var r *room.Room
	if req.RoomID != "" {
		found, exists := s.roomManager.GetRoom(req.RoomID)
		if !exists {
			s.sendError(sess, "no such heist")
			return
		}
		r = found
	} else if r = s.roomManager.FindAvailableRoom(); r == nil {
		r = s.createRoom()
	}
	s.join(sess, r)
}

func (s *GameServer) join(sess *session.Session, r *room.Room) {
	status, role := r.Join(sess)
	result := network.JoinResult{RoomID: r.ID, Status: status.String()}
	if status != lobby.JoinClosed {
		result.Role = role.String()
	}
	if err := network.SendJSON(sess, network.MsgTypeJoinResult, result); err != nil {
		logger.Log.Warnf("Session %s: send join result: %v", sess.GetID(), err)
	}
	if status == lobby.JoinClosed {
		s.sendError(sess, room.ErrRoomFull.Error())
	}
}

func (s *GameServer) handleLeaveHeist(sess *session.Session, packet *network.Packet) {
	if roomID := sess.Room(); roomID != "" {
		if r, exists := s.roomManager.GetRoom(roomID); exists {
			r.RemovePlayer(sess.GetID())
		}
	}
}

func (s *GameServer) handleHeistInput(sess *session.Session, packet *network.Packet) {
	roomID := sess.Room()
	if roomID == "" {
		logger.Log.Warnf("Session %s sent heist input but is not in a room", sess.GetID())
		s.sendError(sess, "join a heist first")
		return
	}

	r, exists := s.roomManager.GetRoom(roomID)
	if !exists {
		logger.Log.Errorf("Room %s not found for session %s", roomID, sess.GetID())
		return
	}

	var msg network.InputMessage
	if err := json.Unmarshal(packet.Data, &msg); err != nil {
		s.sendError(sess, "malformed input")
		return
	}
	if err := r.Input(sess, msg.Content); err != nil {
		if errors.Is(err, room.ErrCannotSend) {
			s.sendError(sess, "the channel is locked for you right now")
			return
		}
		logger.Log.Errorf("Error handling input in room %s: %v", r.GetID(), err)
	}
}

func (s *GameServer) createRoom() *room.Room {
	roomID := uuid.New().String()
	r := s.roomManager.CreateRoom(roomID, "heist-"+roomID[:8], s.broadcaster)
	if s.monitor != nil {
		s.monitor.SetActiveRooms(s.roomManager.Count())
	}
	go s.runRoom(r)
	return r
}

func (s *GameServer) runRoom(r *room.Room) {
	result := r.Run(s.ctx)
	logger.Log.Infof("Room %s finished: %s", r.ID, result.Outcome)
	s.roomManager.RemoveRoom(r.ID)
	if s.monitor != nil {
		s.monitor.SetActiveRooms(s.roomManager.Count())
	}
}

func (s *GameServer) sendError(sess *session.Session, msg string) {
	if err := network.SendJSON(sess, network.MsgTypeError, network.ErrorMessage{Error: msg}); err != nil {
		logger.Log.Warnf("Session %s: send error: %v", sess.GetID(), err)
	}
}

var _ heist.Ledger = (*services.EconomyService)(nil)
var _ room.Recorder = (*services.EconomyService)(nil)
