// Package httpclient configures the pooled HTTP client used by the tools
// that call the counter API.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// NewOutbound returns a client sized for perHost concurrent connections to a
// single target.
func NewOutbound(timeout time.Duration, perHost int) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if perHost <= 0 {
		perHost = 128
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          2 * perHost,
		MaxIdleConnsPerHost:   perHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
