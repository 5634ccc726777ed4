package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestRegistrationRequest_Validate(t *testing.T) {
	tests := []struct {
		name       string
		req        RegistrationRequest
		wantFields []string
	}{
		{
			name: "url only",
			req:  RegistrationRequest{URL: ptr("http://example.test/file")},
		},
		{
			name: "url and user agent at limits",
			req: RegistrationRequest{
				URL:       ptr(strings.Repeat("a", MaxURLLength)),
				UserAgent: ptr(strings.Repeat("b", MaxUserAgentLength)),
			},
		},
		{
			name: "limits count characters not bytes",
			req:  RegistrationRequest{URL: ptr(strings.Repeat("ж", MaxURLLength))},
		},
		{
			name:       "missing url",
			req:        RegistrationRequest{},
			wantFields: []string{"url"},
		},
		{
			name:       "empty url",
			req:        RegistrationRequest{URL: ptr("")},
			wantFields: []string{"url"},
		},
		{
			name:       "url too long",
			req:        RegistrationRequest{URL: ptr(strings.Repeat("a", MaxURLLength+1))},
			wantFields: []string{"url"},
		},
		{
			name: "both fields invalid",
			req: RegistrationRequest{
				URL:       ptr(strings.Repeat("a", MaxURLLength+1)),
				UserAgent: ptr(strings.Repeat("b", MaxUserAgentLength+1)),
			},
			wantFields: []string{"url", "user_agent"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if len(tt.wantFields) == 0 {
				require.NoError(t, err)
				return
			}

			var verr ValidationErrors
			require.True(t, errors.As(err, &verr))
			require.Len(t, verr, len(tt.wantFields))
			for i, f := range tt.wantFields {
				assert.Equal(t, []string{"body", f}, verr[i].Loc)
			}
		})
	}
}

func TestRegistrationRequest_Target(t *testing.T) {
	url, ua := RegistrationRequest{URL: ptr("http://a")}.Target()
	assert.Equal(t, "http://a", url)
	assert.Empty(t, ua)

	url, ua = RegistrationRequest{URL: ptr("http://a"), UserAgent: ptr("X")}.Target()
	assert.Equal(t, "http://a", url)
	assert.Equal(t, "X", ua)
}

func TestValidationErrors_Error(t *testing.T) {
	err := ValidationErrors{{Loc: []string{"body", "url"}, Msg: "field required"}}
	assert.Equal(t, "invalid request: body.url: field required", err.Error())
}
