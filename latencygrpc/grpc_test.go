package latencygrpc

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/failsafe-go/lagmon/internal/testutil"
	"github.com/failsafe-go/lagmon/latency"
)

func millisRecorder() latency.Recorder {
	return latency.NewBuilder().WithResolution(time.Millisecond).Build()
}

func TestUnaryServerInterceptor(t *testing.T) {
	// Given
	recorder := millisRecorder()
	server, dialer := testutil.GrpcServer(testutil.MockHealthService(15*time.Millisecond),
		grpc.UnaryInterceptor(NewUnaryServerInterceptor(recorder)))
	defer server.Stop()
	client := testutil.GrpcClient(dialer)
	defer client.Close()

	// When
	resp, err := healthpb.NewHealthClient(client).Check(context.Background(), &healthpb.HealthCheckRequest{})

	// Then
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
	snapshot := recorder.Snapshot()
	assert.Equal(t, int64(1), snapshot.Count)
	assert.GreaterOrEqual(t, snapshot.Max, 15*time.Millisecond)
}

func TestUnaryServerInterceptorRecordsErrors(t *testing.T) {
	// Given
	recorder := millisRecorder()
	server, dialer := testutil.GrpcServer(testutil.MockHealthError(status.Error(codes.Unavailable, "down")),
		grpc.UnaryInterceptor(NewUnaryServerInterceptor(recorder)))
	defer server.Stop()
	client := testutil.GrpcClient(dialer)
	defer client.Close()

	// When
	_, err := healthpb.NewHealthClient(client).Check(context.Background(), &healthpb.HealthCheckRequest{})

	// Then
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Equal(t, int64(1), recorder.Snapshot().Count)
}

func TestStreamServerInterceptor(t *testing.T) {
	// Given
	recorder := millisRecorder()
	server, dialer := testutil.GrpcServer(testutil.MockHealthService(0),
		grpc.StreamInterceptor(NewStreamServerInterceptor(recorder)))
	defer server.Stop()
	client := testutil.GrpcClient(dialer)
	defer client.Close()

	// When
	stream, err := healthpb.NewHealthClient(client).Watch(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	updates := drain(t, stream)

	// Then
	assert.Equal(t, 3, updates)
	assert.Eventually(t, func() bool {
		return recorder.Snapshot().Count == 1
	}, time.Second, 5*time.Millisecond)
}

func TestUnaryClientInterceptor(t *testing.T) {
	// Given
	recorder := millisRecorder()
	server, dialer := testutil.GrpcServer(testutil.MockHealthService(10 * time.Millisecond))
	defer server.Stop()
	client := testutil.GrpcClient(dialer, grpc.WithUnaryInterceptor(UnaryClientInterceptor(recorder)))
	defer client.Close()
	health := healthpb.NewHealthClient(client)

	// When
	for i := 0; i < 2; i++ {
		_, err := health.Check(context.Background(), &healthpb.HealthCheckRequest{})
		require.NoError(t, err)
	}

	// Then
	snapshot := recorder.Snapshot()
	assert.Equal(t, int64(2), snapshot.Count)
	assert.GreaterOrEqual(t, snapshot.Min, 10*time.Millisecond)
}

func TestUnaryClientInterceptorRecordsDeadline(t *testing.T) {
	// Given
	recorder := millisRecorder()
	server, dialer := testutil.GrpcServer(testutil.MockHealthService(time.Second))
	defer server.Stop()
	client := testutil.GrpcClient(dialer, grpc.WithUnaryInterceptor(UnaryClientInterceptor(recorder)))
	defer client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// When
	_, err := healthpb.NewHealthClient(client).Check(ctx, &healthpb.HealthCheckRequest{})

	// Then
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
	assert.Equal(t, int64(1), recorder.Snapshot().Count)
}

func TestStreamClientInterceptor(t *testing.T) {
	// Given
	recorder := millisRecorder()
	server, dialer := testutil.GrpcServer(testutil.MockHealthService(0))
	defer server.Stop()
	client := testutil.GrpcClient(dialer, grpc.WithStreamInterceptor(StreamClientInterceptor(recorder)))
	defer client.Close()

	// When
	stream, err := healthpb.NewHealthClient(client).Watch(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), recorder.Snapshot().Count)
	updates := drain(t, stream)

	// Then
	assert.Equal(t, 3, updates)
	assert.Equal(t, int64(1), recorder.Snapshot().Count)
}

func drain(t *testing.T, stream healthpb.Health_WatchClient) int {
	updates := 0
	for {
		_, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return updates
		}
		require.NoError(t, err)
		updates++
	}
}
