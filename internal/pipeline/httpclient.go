package pipeline

import (
	"net/http"
	"time"
)

// NewPooledHTTPClient creates an http.Client with connection pooling and an
// explicit overall timeout. Backend calls can block for seconds; the timeout
// bounds them so a dead backend surfaces as a network failure instead of a
// hung run.
func NewPooledHTTPClient(poolSize int, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          poolSize,
			MaxIdleConnsPerHost:   poolSize,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}
