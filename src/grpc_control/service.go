package grpc_control

import (
	"context"
	"fmt"
	"net"
	"time"

	"request-monitor/src/interfaces"
	"request-monitor/src/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/encoding/protojson"
)

// ServiceName is the health-check name that tracks database reachability.
const ServiceName = "request-monitor.Dashboard"

const (
	defaultProbeInterval = 15 * time.Second
	probeTimeout         = 3 * time.Second
)

// -----------------------------------------------------------------------------

// ControlService publishes the standard gRPC health protocol. The overall
// status and ServiceName both follow the database probe.
type ControlService struct {
	Health   *health.Server
	Probe    interfaces.IHealthProbe
	Interval time.Duration
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

// NewControlService creates a new instance of ControlService
func NewControlService(probe interfaces.IHealthProbe, log *logger.Logger) *ControlService {
	return &ControlService{
		Health:   health.NewServer(),
		Probe:    probe,
		Interval: defaultProbeInterval,
		Logger:   log,
	}
}

// -----------------------------------------------------------------------------

// Register attaches health and reflection services to a gRPC server.
func (s *ControlService) Register(server *grpc.Server) {
	healthpb.RegisterHealthServer(server, s.Health)
	reflection.Register(server)
}

// -----------------------------------------------------------------------------

// Check probes the database once and publishes the result.
func (s *ControlService) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if s.Probe != nil {
		ctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		if err := s.Probe.Ping(ctx); err != nil {
			s.Logger.Warning("Health probe failed: %v", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	s.Health.SetServingStatus("", status)
	s.Health.SetServingStatus(ServiceName, status)
	return status
}

// -----------------------------------------------------------------------------

// Watch re-probes on every interval until ctx is cancelled, then marks
// everything NOT_SERVING.
func (s *ControlService) Watch(ctx context.Context) {
	s.Check(ctx)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Health.Shutdown()
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// -----------------------------------------------------------------------------

// Serve listens on host:port and blocks until ctx is cancelled.
func Serve(ctx context.Context, host string, port int, svc *ControlService, log *logger.Logger) error {
	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}
	return ServeListener(ctx, lis, svc, log)
}

// -----------------------------------------------------------------------------

func ServeListener(ctx context.Context, lis net.Listener, svc *ControlService, log *logger.Logger) error {
	grpcServer := grpc.NewServer()
	svc.Register(grpcServer)

	go svc.Watch(ctx)
	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	log.Info("Starting gRPC health server on %s", lis.Addr())
	if err := grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Probe asks a running server for the health of service ("" for overall)
// and returns the response rendered as protojson.
func Probe(ctx context.Context, target, service string, opts ...grpc.DialOption) ([]byte, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", target, err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
}
