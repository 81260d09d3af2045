package rpc

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/wfunc/heist/logger"
)

// HealthService is the service name reported alongside the overall status.
const HealthService = "heist"

// HealthServer serves the standard gRPC health checking protocol.
type HealthServer struct {
	listener net.Listener
	server   *grpc.Server
	health   *health.Server
}

// NewHealthServer listens on addr. The status starts as NOT_SERVING.
func NewHealthServer(addr string) (*HealthServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	h := &HealthServer{
		listener: listener,
		server:   grpc.NewServer(),
		health:   health.NewServer(),
	}
	grpc_health_v1.RegisterHealthServer(h.server, h.health)
	h.SetServing(false)
	return h, nil
}

// Addr returns the bound address.
func (h *HealthServer) Addr() string {
	return h.listener.Addr().String()
}

// SetServing flips both the overall and the heist service status.
func (h *HealthServer) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(HealthService, status)
}

// Start serves until Stop.
func (h *HealthServer) Start() {
	logger.Log.Infof("gRPC health server listening on %s", h.Addr())
	if err := h.server.Serve(h.listener); err != nil {
		logger.Log.Errorf("gRPC health server: %v", err)
	}
}

// Stop reports NOT_SERVING to watchers and shuts the server down.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
