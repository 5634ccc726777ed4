// Package relay fetches registered targets and exposes the upstream
// response as a forward-only sequence of body chunks.
package relay

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/go-url-relay/internal/storage"
)

// DefaultChunkSize is the read buffer used for upstream bodies.
const DefaultChunkSize = 32 * 1024

// Options tunes the outbound client.
type Options struct {
	// ConnectTimeout bounds TCP connect and TLS handshake.
	ConnectTimeout time.Duration
	// HeaderTimeout bounds the wait for the upstream status line and headers
	// once the request is written. The body itself has no deadline.
	HeaderTimeout time.Duration
	// ChunkSize is the body read buffer size.
	ChunkSize int
}

// Fetcher opens upstream responses for stored records.
type Fetcher struct {
	client    *http.Client
	chunkSize int
	logger    *zap.Logger
}

func NewFetcher(opts Options, logger *zap.Logger) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// bytes and Content-Encoding go to the caller untouched
	transport.DisableCompression = true

	if opts.ConnectTimeout > 0 {
		dialer := &net.Dialer{Timeout: opts.ConnectTimeout, KeepAlive: 30 * time.Second}
		transport.DialContext = dialer.DialContext
		transport.TLSHandshakeTimeout = opts.ConnectTimeout
	}
	if opts.HeaderTimeout > 0 {
		transport.ResponseHeaderTimeout = opts.HeaderTimeout
	}

	return NewFetcherWithClient(&http.Client{Transport: transport}, opts.ChunkSize, logger)
}

// NewFetcherWithClient builds a Fetcher around an existing client.
func NewFetcherWithClient(client *http.Client, chunkSize int, logger *zap.Logger) *Fetcher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Fetcher{
		client:    client,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Open issues a GET for r.URL and returns once the upstream status and
// headers are known. Failures up to that point are *ConnectError or
// *FetchError. The caller owns the returned Upstream and must drain it
// with WriteTo or release it with Close. ctx governs the whole transfer,
// cancelling it aborts the body stream.
func (f *Fetcher) Open(ctx context.Context, r storage.ProxyRecord) (*Upstream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, &FetchError{Err: err}
	}

	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("upstream request failed", zap.String("id", r.ID), zap.Error(err))
		return nil, classify(err)
	}

	f.logger.Debug("upstream response",
		zap.String("id", r.ID),
		zap.Int("status", resp.StatusCode),
		zap.Int64("content_length", resp.ContentLength),
	)

	return newUpstream(resp, f.chunkSize), nil
}
