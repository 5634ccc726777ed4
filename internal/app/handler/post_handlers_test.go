package handler_test

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/atinyakov/go-url-relay/internal/app/handler"
	"github.com/atinyakov/go-url-relay/internal/app/service"
	"github.com/atinyakov/go-url-relay/internal/fingerprint"
	"github.com/atinyakov/go-url-relay/internal/mocks"
	"github.com/atinyakov/go-url-relay/internal/models"
	"github.com/atinyakov/go-url-relay/internal/storage"
)

func newRelayService(t *testing.T) *service.RelayService {
	t.Helper()
	store, err := storage.CreateMemoryStorage()
	require.NoError(t, err)
	return service.NewRelay(store, nil, zap.NewNop())
}

func decodeLink(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var link string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))
	return link
}

func TestRegister(t *testing.T) {
	h := handler.NewPost("http://short.example", newRelayService(t), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"url":"https://example.com/file","user_agent":"curl/8"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "http://short.example/"+fingerprint.Of("https://example.com/file", "curl/8"), decodeLink(t, rec))
}

func TestRegister_Idempotent(t *testing.T) {
	h := handler.NewPost("http://short.example", newRelayService(t), zap.NewNop())

	var links []string
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.Register(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"url":"https://example.com"}`)))
		require.Equal(t, http.StatusOK, rec.Code)
		links = append(links, decodeLink(t, rec))
	}

	assert.Equal(t, links[0], links[1])
}

func TestRegister_BaseFromRequest(t *testing.T) {
	id := fingerprint.Of("https://example.com", "")
	body := `{"url":"https://example.com"}`

	tests := []struct {
		name    string
		target  string
		prepare func(*http.Request)
		want    string
	}{
		{
			name:   "plain host",
			target: "http://relay.local:8080/",
			want:   "http://relay.local:8080/" + id,
		},
		{
			name:   "forwarded proto",
			target: "http://relay.local/",
			prepare: func(r *http.Request) {
				r.Header.Set("X-Forwarded-Proto", "HTTPS, http")
			},
			want: "https://relay.local/" + id,
		},
		{
			name:   "tls",
			target: "http://relay.local/",
			prepare: func(r *http.Request) {
				r.TLS = &tls.ConnectionState{}
			},
			want: "https://relay.local/" + id,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewPost("", newRelayService(t), zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(body))
			if tt.prepare != nil {
				tt.prepare(req)
			}
			rec := httptest.NewRecorder()
			h.Register(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, decodeLink(t, rec))
		})
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		typ   string
	}{
		{name: "missing url", body: `{}`, field: "url", typ: "value_error.missing"},
		{name: "null url", body: `{"url":null}`, field: "url", typ: "value_error.missing"},
		{name: "empty url", body: `{"url":""}`, field: "url", typ: "value_error.missing"},
		{name: "url too long", body: `{"url":"` + strings.Repeat("a", models.MaxURLLength+1) + `"}`, field: "url", typ: "value_error.any_str.max_length"},
		{name: "user agent too long", body: `{"url":"https://example.com","user_agent":"` + strings.Repeat("u", models.MaxUserAgentLength+1) + `"}`, field: "user_agent", typ: "value_error.any_str.max_length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewPost("http://short.example", newRelayService(t), zap.NewNop())

			rec := httptest.NewRecorder()
			h.Register(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			var resp struct {
				Detail []models.FieldError `json:"detail"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Len(t, resp.Detail, 1)
			assert.Equal(t, []string{"body", tt.field}, resp.Detail[0].Loc)
			assert.Equal(t, tt.typ, resp.Detail[0].Type)
		})
	}
}

func TestRegister_MalformedBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// The service must not be reached for undecodable bodies.
	h := handler.NewPost("http://short.example", mocks.NewMockRelayServiceIface(ctrl), zap.NewNop())

	tests := []struct {
		name        string
		body        string
		contentType string
		status      int
	}{
		{name: "bad json", body: `{"url":`, status: http.StatusBadRequest},
		{name: "syntax error", body: `{"url" "x"}`, status: http.StatusBadRequest},
		{name: "unknown field", body: `{"url":"https://example.com","extra":1}`, status: http.StatusBadRequest},
		{name: "wrong type", body: `{"url":42}`, status: http.StatusBadRequest},
		{name: "empty body", body: ``, status: http.StatusBadRequest},
		{name: "two objects", body: `{"url":"a"}{"url":"b"}`, status: http.StatusBadRequest},
		{name: "wrong content type", body: `{"url":"a"}`, contentType: "text/plain", status: http.StatusUnsupportedMediaType},
		{name: "too large", body: `{"url":"` + strings.Repeat("a", 1<<20) + `"}`, status: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()

			h.Register(rec, req)

			assert.Equal(t, tt.status, rec.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["detail"])
		})
	}
}

func TestRegister_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mocks.NewMockRelayServiceIface(ctrl)
	mockService.EXPECT().Register(gomock.Any(), gomock.Any()).Return(storage.ProxyRecord{}, false, errors.New("db down"))

	h := handler.NewPost("http://short.example", mockService, zap.NewNop())
	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"url":"https://example.com"}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Internal Server Error"}`, rec.Body.String())
}
