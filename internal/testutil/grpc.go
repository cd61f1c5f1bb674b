package testutil

import (
	"context"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

// healthService answers health checks with a fixed status after an optional delay, and streams the status a fixed
// number of times from Watch.
type healthService struct {
	healthpb.UnimplementedHealthServer
	status  healthpb.HealthCheckResponse_ServingStatus
	delay   time.Duration
	err     error
	updates int
}

func (s *healthService) Check(ctx context.Context, _ *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &healthpb.HealthCheckResponse{Status: s.status}, nil
}

func (s *healthService) Watch(_ *healthpb.HealthCheckRequest, stream healthpb.Health_WatchServer) error {
	for i := 0; i < s.updates; i++ {
		if err := stream.Send(&healthpb.HealthCheckResponse{Status: s.status}); err != nil {
			return err
		}
	}
	return s.err
}

// MockHealthService returns a health service that reports SERVING, after the delay for unary checks. Watch streams
// the status 3 times.
func MockHealthService(delay time.Duration) healthpb.HealthServer {
	return &healthService{status: healthpb.HealthCheckResponse_SERVING, delay: delay, updates: 3}
}

// MockHealthError returns a health service that fails every call with the err.
func MockHealthError(err error) healthpb.HealthServer {
	return &healthService{err: err}
}

type Dialer func(context.Context, string) (net.Conn, error)

// GrpcServer serves the health service on an in-memory listener and returns a dialer for it.
func GrpcServer(service healthpb.HealthServer, options ...grpc.ServerOption) (*grpc.Server, Dialer) {
	server := grpc.NewServer(options...)
	healthpb.RegisterHealthServer(server, service)
	listen := bufconn.Listen(1024 * 1024)
	go func() {
		if err := server.Serve(listen); err != nil {
			log.Fatalf("Server exited with error: %v", err)
		}
	}()
	return server, func(context.Context, string) (net.Conn, error) {
		return listen.Dial()
	}
}

func GrpcClient(dialer Dialer, options ...grpc.DialOption) *grpc.ClientConn {
	opts := []grpc.DialOption{grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials())}
	opts = append(opts, options...)
	client, err := grpc.NewClient("passthrough://bufnet", opts...)
	if err != nil {
		panic(err)
	}
	return client
}
