package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"
)

// MockDelayedResponse returns a server that replies with the statusCode and body after the delay.
func MockDelayedResponse(statusCode int, body string, delay time.Duration) *httptest.Server {
	return httptest.NewServer(MockHandler(statusCode, body, delay))
}

// MockHandler returns a handler that replies with the statusCode and body after the delay, or gives up when the request
// is canceled.
func MockHandler(statusCode int, body string, delay time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, request *http.Request) {
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-request.Context().Done():
				timer.Stop()
				return
			}
		}
		w.WriteHeader(statusCode)
		fmt.Fprint(w, body)
	})
}
