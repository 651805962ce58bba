package grpc

import (
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/nemanja-m/enhancify/internal/shared/config"
	"github.com/nemanja-m/enhancify/internal/shared/logging"
	"github.com/nemanja-m/enhancify/internal/shared/wire"
)

type Server struct {
	addr       string
	grpcServer *grpc.Server
	listener   net.Listener
	logger     logging.Logger
}

func NewServer(
	cfg config.GRPCConfig,
	registry WorkerRegistry,
	logger logging.Logger,
) *Server {
	grpcServer := grpc.NewServer(
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             cfg.KeepaliveMinTime,
			PermitWithoutStream: true,
		}),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)

	wire.RegisterDispatchServer(grpcServer, NewDispatchService(registry, logger))

	if cfg.EnableReflection {
		reflection.Register(grpcServer)
	}

	return &Server{
		addr:       cfg.Addr,
		grpcServer: grpcServer,
		logger:     logger,
	}
}

// Listen binds the configured address and returns the bound one, which
// differs when the configured port is 0.
func (s *Server) Listen() (string, error) {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", err
	}
	s.listener = lis
	return lis.Addr().String(), nil
}

// Serve blocks until the server stops. Listen must be called first.
func (s *Server) Serve() error {
	return s.grpcServer.Serve(s.listener)
}

// Stop waits for open streams to finish.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

// ForceStop closes all streams immediately.
func (s *Server) ForceStop() {
	s.grpcServer.Stop()
}
