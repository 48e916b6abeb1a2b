package thar_test

import (
	"net/http"
	"testing"

	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/mbody"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/translate/thar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHAR = `{
  "log": {
    "entries": [
      {
        "startedDateTime": "2026-05-01T10:00:00.000Z",
        "_resourceType": "document",
        "request": {
          "method": "GET",
          "url": "https://app.example.com/",
          "httpVersion": "HTTP/2",
          "headers": [{"name": "Accept", "value": "text/html"}],
          "cookies": [],
          "queryString": []
        },
        "response": {"status": 200, "statusText": "OK", "httpVersion": "HTTP/2", "headers": [], "content": {"size": 0, "mimeType": "text/html", "text": ""}}
      },
      {
        "startedDateTime": "2026-05-01T10:00:01.000Z",
        "_resourceType": "xhr",
        "request": {
          "method": "POST",
          "url": "https://api.example.com/v1/users?notify=true",
          "httpVersion": "HTTP/2",
          "headers": [
            {"name": ":authority", "value": "api.example.com"},
            {"name": "Content-Type", "value": "application/json"},
            {"name": "Cookie", "value": "sid=s1"},
            {"name": "X-Trace", "value": "t-1"}
          ],
          "cookies": [{"name": "sid", "value": "s1"}],
          "queryString": [{"name": "notify", "value": "true"}],
          "postData": {"mimeType": "application/json", "text": "{\"name\":\"alice\"}"}
        },
        "response": {"status": 201, "statusText": "Created", "httpVersion": "HTTP/2", "headers": [], "content": {"size": 2, "mimeType": "application/json", "text": "{}"}}
      },
      {
        "startedDateTime": "2026-05-01T10:00:02.000Z",
        "_resourceType": "fetch",
        "request": {
          "method": "POST",
          "url": "https://api.example.com/v1/login",
          "httpVersion": "HTTP/2",
          "headers": [{"name": "Content-Type", "value": "application/x-www-form-urlencoded"}],
          "cookies": [],
          "queryString": [],
          "postData": {
            "mimeType": "application/x-www-form-urlencoded",
            "text": "username=demo&password=secret",
            "params": [
              {"name": "username", "value": "demo"},
              {"name": "password", "value": "secret"}
            ]
          }
        },
        "response": {"status": 200, "statusText": "OK", "httpVersion": "HTTP/2", "headers": [], "content": {"size": 2, "mimeType": "application/json", "text": "{}"}}
      }
    ]
  }
}`

func TestConvertHAR(t *testing.T) {
	har, err := thar.ConvertRaw([]byte(sampleHAR))
	require.NoError(t, err)

	models, err := thar.ConvertHAR(har)
	require.NoError(t, err)
	require.Len(t, models, 2, "document entries are filtered out")

	users := models[0]
	assert.Equal(t, http.MethodPost, users.Method)
	assert.Equal(t, "/v1/users", users.URL)
	assert.Equal(t, "https://api.example.com", users.URLPrefix)
	assert.Equal(t, map[string]string{"notify": "true"}, users.Params)
	assert.Equal(t, map[string]string{"sid": "s1"}, users.Cookies)

	// pseudo-headers and Cookie are dropped, the rest survive
	assert.NotContains(t, users.Headers, ":authority")
	assert.NotContains(t, users.Headers, "Cookie")
	assert.Equal(t, "t-1", users.Headers["X-Trace"])

	require.Equal(t, mbody.BodyKindJSON, users.Body.Kind)
	assert.Equal(t, map[string]any{"name": "alice"}, users.Body.JSON)

	login := models[1]
	assert.Equal(t, "/v1/login", login.URL)
	require.Equal(t, mbody.BodyKindURLEncoded, login.Body.Kind)
	assert.Equal(t, "demo", login.Body.Fields["username"])
}

func TestIsXHRRequest(t *testing.T) {
	tests := []struct {
		name  string
		entry thar.Entry
		want  bool
	}{
		{
			name:  "xhr resource type",
			entry: thar.Entry{ResourceType: "xhr"},
			want:  true,
		},
		{
			name: "requested-with header",
			entry: thar.Entry{Request: thar.Request{Headers: []thar.Header{
				{Name: "x-requested-with", Value: "XMLHttpRequest"},
			}}},
			want: true,
		},
		{
			name: "json content type",
			entry: thar.Entry{Request: thar.Request{Headers: []thar.Header{
				{Name: "content-type", Value: "application/json; charset=utf-8"},
			}}},
			want: true,
		},
		{
			name:  "plain document",
			entry: thar.Entry{ResourceType: "document"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, thar.IsXHRRequest(tt.entry))
		})
	}
}

func TestConvertRawInvalid(t *testing.T) {
	_, err := thar.ConvertRaw([]byte(`not json`))
	require.Error(t, err)
}
