package storage

import (
	"errors"

	"github.com/atinyakov/go-url-relay/internal/fingerprint"
)

// ErrNotFound is returned when no record has the requested identifier.
var ErrNotFound = errors.New("not found")

// ProxyRecord is a registered relay target keyed by its fingerprint.
// An empty UserAgent means no override header is sent upstream.
type ProxyRecord struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	UserAgent string `json:"user_agent,omitempty"`
}

// NewProxyRecord builds the record for url and userAgent with its
// identifier already derived.
func NewProxyRecord(url, userAgent string) ProxyRecord {
	return ProxyRecord{
		ID:        fingerprint.Of(url, userAgent),
		URL:       url,
		UserAgent: userAgent,
	}
}
