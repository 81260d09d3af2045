package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/heist/logger"
	"github.com/wfunc/heist/models"
)

const callTimeout = 5 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer creates a new RPC server listening on addr.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rpc.NewServer(),
	}, nil
}

// Register publishes the exported methods of rcvr.
func (s *Server) Register(rcvr interface{}) error {
	return s.rpc.Register(rcvr)
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// Economy is what HeistService reads from; services.EconomyService implements it.
type Economy interface {
	Balance(ctx context.Context, playerID string) (int64, error)
	RecentHeists(ctx context.Context, limit int) ([]models.HeistRecord, error)
}

// HeistService is the struct that exposes RPC methods.
// Methods follow the net/rpc signature: exported method, exported arguments,
// second argument is a pointer, return type is error.
type HeistService struct {
	economy Economy
}

// NewHeistService creates a new HeistService.
func NewHeistService(economy Economy) *HeistService {
	return &HeistService{economy: economy}
}

type GetBalanceArgs struct {
	PlayerID string
}

type GetBalanceReply struct {
	PlayerID string
	Balance  int64
}

// GetBalance returns a player's accumulated heist rewards.
func (hs *HeistService) GetBalance(args *GetBalanceArgs, reply *GetBalanceReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	balance, err := hs.economy.Balance(ctx, args.PlayerID)
	if err != nil {
		return err
	}
	reply.PlayerID = args.PlayerID
	reply.Balance = balance
	return nil
}

type RecentHeistsArgs struct {
	Limit int
}

type RecentHeistsReply struct {
	Records []models.HeistRecord
}

// RecentHeists lists finished heists, newest first.
func (hs *HeistService) RecentHeists(args *RecentHeistsArgs, reply *RecentHeistsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	records, err := hs.economy.RecentHeists(ctx, args.Limit)
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}
