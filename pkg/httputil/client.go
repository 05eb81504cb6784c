// Package httputil provides shared HTTP plumbing for the sentinel service:
// pooled clients in timeout tiers and safe response handling.
package httputil

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseSize is the default maximum size for reading HTTP response
// bodies. The classifier backend is external and must not be able to OOM us.
const MaxResponseSize = 2 * 1024 * 1024 // 2MB

// Shared transport with connection pooling. Safe for concurrent use;
// reusing TCP connections matters because every elevated-risk message
// costs one classifier round trip.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          64,
	MaxIdleConnsPerHost:   8,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   5 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

// TimeoutTier defines the timeout categories used by the pipeline.
type TimeoutTier int

const (
	// TierProbe for connectivity probes and inject webhooks (5s)
	TierProbe TimeoutTier = iota
	// TierClassify for remote classifier calls. The pipeline degrades to a
	// heuristic-only verdict after this bound; it must stay small enough
	// that a requester never perceives a hang.
	TierClassify
)

var timeoutDurations = map[TimeoutTier]time.Duration{
	TierProbe:    5 * time.Second,
	TierClassify: 10 * time.Second,
}

// Singleton clients per tier - initialized once, reused everywhere.
var (
	clientProbe    *http.Client
	clientClassify *http.Client
	clientOnce     sync.Once
)

func initClients() {
	clientProbe = &http.Client{
		Timeout:   timeoutDurations[TierProbe],
		Transport: sharedTransport,
	}
	clientClassify = &http.Client{
		Timeout:   timeoutDurations[TierClassify],
		Transport: sharedTransport,
	}
}

// Client returns a shared HTTP client for the given timeout tier.
// These clients share a connection pool and should be used instead of
// creating new http.Client instances per request.
func Client(tier TimeoutTier) *http.Client {
	clientOnce.Do(initClients)
	switch tier {
	case TierProbe:
		return clientProbe
	default:
		return clientClassify
	}
}

// ProbeClient returns a client with a 5s timeout (health probes, webhooks).
func ProbeClient() *http.Client {
	return Client(TierProbe)
}

// ClassifyClient returns a client with a 10s timeout (remote classification).
func ClassifyClient() *http.Client {
	return Client(TierClassify)
}

// ReadResponseBody safely reads an HTTP response body with a size limit.
func ReadResponseBody(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = MaxResponseSize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// DrainAndClose properly drains and closes an HTTP response body so the
// underlying connection returns to the pool.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseSize))
		_ = body.Close()
	}
}
