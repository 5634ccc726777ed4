// Package models defines the request and response data structures used
// for communication between clients and the relay service.
package models

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Field limits of a registration request, counted in characters.
const (
	MaxURLLength       = 2048
	MaxUserAgentLength = 1024
)

// RegistrationRequest is the body of a registration call.
type RegistrationRequest struct {
	// URL is the target fetched on every retrieval. Required.
	URL *string `json:"url"`

	// UserAgent overrides the User-Agent header of upstream requests.
	// Nil or empty means the relay client default is used.
	UserAgent *string `json:"user_agent"`
}

// Target returns the url and user agent of the request with absent
// values flattened to empty strings.
func (r RegistrationRequest) Target() (string, string) {
	var url, userAgent string
	if r.URL != nil {
		url = *r.URL
	}
	if r.UserAgent != nil {
		userAgent = *r.UserAgent
	}

	return url, userAgent
}

// Validate checks field presence and lengths. It returns ValidationErrors
// listing every violated field, or nil.
func (r RegistrationRequest) Validate() error {
	var errs ValidationErrors

	switch {
	case r.URL == nil || *r.URL == "":
		errs = append(errs, FieldError{
			Loc:  []string{"body", "url"},
			Msg:  "field required",
			Type: "value_error.missing",
		})
	case utf8.RuneCountInString(*r.URL) > MaxURLLength:
		errs = append(errs, tooLong("url", MaxURLLength))
	}

	if r.UserAgent != nil && utf8.RuneCountInString(*r.UserAgent) > MaxUserAgentLength {
		errs = append(errs, tooLong("user_agent", MaxUserAgentLength))
	}

	if len(errs) == 0 {
		return nil
	}

	return errs
}

func tooLong(field string, limit int) FieldError {
	return FieldError{
		Loc:  []string{"body", field},
		Msg:  fmt.Sprintf("ensure this value has at most %d characters", limit),
		Type: "value_error.any_str.max_length",
	}
}

// FieldError describes one invalid field of a request body.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationErrors is returned by Validate when the request is rejected.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, strings.Join(e.Loc, ".")+": "+e.Msg)
	}

	return "invalid request: " + strings.Join(parts, "; ")
}

// ErrorResponse is the JSON body of every failed HTTP call.
// Detail is either a message string or a list of FieldError.
type ErrorResponse struct {
	Detail any `json:"detail"`
}
