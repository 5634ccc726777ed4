package relay

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
)

// DefaultContentType is forwarded when the upstream sends none.
const DefaultContentType = "application/octet-stream"

// connection-level headers that must not be forwarded
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Upstream is an open upstream response. Its body is consumed once, in
// order, either chunk by chunk with Next or all at once with WriteTo.
type Upstream struct {
	StatusCode int
	// Header holds the forwardable upstream headers, Content-Type included.
	Header http.Header
	// ContentType is the forwarded Content-Type value.
	ContentType string

	body io.ReadCloser
	buf  []byte

	closeOnce sync.Once
	closeErr  error
}

func newUpstream(resp *http.Response, chunkSize int) *Upstream {
	header := forwardable(resp.Header)

	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = DefaultContentType
		header.Set("Content-Type", contentType)
	}

	return &Upstream{
		StatusCode:  resp.StatusCode,
		Header:      header,
		ContentType: contentType,
		body:        resp.Body,
		buf:         make([]byte, chunkSize),
	}
}

// Next returns the next body chunk as delivered by the transport, or
// io.EOF once the body is complete. The chunk is only valid until the
// following call. Any other error means the body was cut short.
func (u *Upstream) Next() ([]byte, error) {
	for {
		n, err := u.body.Read(u.buf)
		if n > 0 {
			return u.buf[:n], nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// WriteTo forwards the body to w chunk by chunk, flushing w after every
// chunk when it supports flushing, so no more than one chunk is read ahead
// of what reached w. The upstream is closed when WriteTo returns.
func (u *Upstream) WriteTo(w io.Writer) (int64, error) {
	defer u.Close()

	flush := flusherOf(w)

	var written int64
	for {
		chunk, err := u.Next()
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, err
		}

		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}

		if err := flush(); err != nil {
			return written, err
		}
	}
}

// Close releases the upstream connection. It is safe to call more than once.
func (u *Upstream) Close() error {
	u.closeOnce.Do(func() {
		u.closeErr = u.body.Close()
	})

	return u.closeErr
}

func flusherOf(w io.Writer) func() error {
	switch f := w.(type) {
	case http.ResponseWriter:
		rc := http.NewResponseController(f)
		return func() error {
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return err
			}
			return nil
		}
	case interface{ Flush() error }:
		return f.Flush
	default:
		return func() error { return nil }
	}
}

func forwardable(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = make(http.Header)
	}

	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out.Del(name)
			}
		}
	}

	for _, k := range hopHeaders {
		out.Del(k)
	}

	return out
}
