package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
)

// WithGZIPPost transparently decodes gzip encoded request bodies.
// Responses are never compressed: relayed bytes must reach the client unchanged.
func WithGZIPPost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendsEncoded := strings.Contains(r.Header.Get("Content-Encoding"), "gzip")

		if sendsEncoded {
			reader, err := gzip.NewReader(r.Body)
			if err != nil {
				writeDetail(w, http.StatusBadRequest, "Failed to decompress request body")
				return
			}
			defer reader.Close()

			r.Body = io.NopCloser(reader)
			r.Header.Del("Content-Encoding")
			r.ContentLength = -1
		}

		next.ServeHTTP(w, r)
	})
}
