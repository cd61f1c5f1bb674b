// Package latencyhttp records HTTP request latency into a latency.Recorder.
package latencyhttp

import (
	"net/http"
	"time"

	"github.com/failsafe-go/lagmon/latency"
)

// NewHandler returns a new http.Handler that records the time spent serving each request via innerHandler into the
// recorder.
func NewHandler(innerHandler http.Handler, recorder latency.Recorder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer recorder.RecordSince(start)
		innerHandler.ServeHTTP(w, r)
	})
}

type roundTripper struct {
	next     http.RoundTripper
	recorder latency.Recorder
}

// NewRoundTripper returns a new http.RoundTripper that records the latency of each round trip via innerRoundTripper
// into the recorder. Failed round trips are recorded too, since a timeout is a latency. If innerRoundTripper is nil,
// http.DefaultTransport will be used.
func NewRoundTripper(innerRoundTripper http.RoundTripper, recorder latency.Recorder) http.RoundTripper {
	if innerRoundTripper == nil {
		innerRoundTripper = http.DefaultTransport
	}
	return &roundTripper{
		next:     innerRoundTripper,
		recorder: recorder,
	}
}

func (l *roundTripper) RoundTrip(request *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := l.next.RoundTrip(request)
	l.recorder.RecordSince(start)
	return resp, err
}
