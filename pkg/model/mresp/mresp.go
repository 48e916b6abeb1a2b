package mresp

import (
	"net/http"
	"time"
)

// APIResponse is the captured result of one send. Body holds the structured
// (JSON-decoded) payload and stays nil when parsing fails; RawText is always
// populated regardless.
type APIResponse struct {
	StatusCode int
	Headers    map[string]string
	Cookies    map[string]string
	Body       any
	Elapsed    time.Duration
	RawText    string
}

func (r *APIResponse) IsSuccess() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

func (r *APIResponse) IsClientError() bool {
	return r.StatusCode >= http.StatusBadRequest && r.StatusCode < http.StatusInternalServerError
}

func (r *APIResponse) IsServerError() bool {
	return r.StatusCode >= http.StatusInternalServerError && r.StatusCode < 600
}

// JSONMap returns the structured body as an object, or an empty map when the
// body is absent or not an object.
func (r *APIResponse) JSONMap() map[string]any {
	if m, ok := r.Body.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
