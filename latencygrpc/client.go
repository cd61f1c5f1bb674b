package latencygrpc

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/failsafe-go/lagmon/latency"
)

// UnaryClientInterceptor returns a gRPC unary client interceptor that records the latency of each call into the
// recorder.
func UnaryClientInterceptor(recorder latency.Recorder) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		recorder.RecordSince(start)
		return err
	}
}

// StreamClientInterceptor returns a gRPC stream client interceptor that records the time from opening a stream until
// RecvMsg first returns an error, which includes io.EOF at the end of a stream. A stream that fails to open is recorded
// immediately.
func StreamClientInterceptor(recorder latency.Recorder) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		start := time.Now()
		clientStream, err := streamer(ctx, desc, cc, method, opts...)
		if err != nil {
			recorder.RecordSince(start)
			return nil, err
		}
		return &recordingClientStream{
			ClientStream: clientStream,
			recorder:     recorder,
			start:        start,
		}, nil
	}
}

type recordingClientStream struct {
	grpc.ClientStream
	recorder latency.Recorder
	start    time.Time
	once     sync.Once
}

func (s *recordingClientStream) RecvMsg(m any) error {
	err := s.ClientStream.RecvMsg(m)
	if err != nil {
		s.once.Do(func() {
			s.recorder.RecordSince(s.start)
		})
	}
	return err
}
