// Package latencygrpc provides gRPC interceptors that record call latency into a latency.Recorder.
package latencygrpc

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/failsafe-go/lagmon/latency"
)

// NewUnaryServerInterceptor returns a grpc.UnaryServerInterceptor that records the time spent in each handler into the
// recorder, whether the handler succeeds or fails.
func NewUnaryServerInterceptor(recorder latency.Recorder) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		defer recorder.RecordSince(start)
		return handler(ctx, req)
	}
}

// NewStreamServerInterceptor returns a grpc.StreamServerInterceptor that records the lifetime of each stream into the
// recorder.
func NewStreamServerInterceptor(recorder latency.Recorder) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		defer recorder.RecordSince(start)
		return handler(srv, ss)
	}
}
