// Package session wraps one executor and one transport client with login
// and token caching, and exports a storage-state snapshot so a browser
// automation context can reuse the authenticated session without re-login.
package session

import (
	"context"
	"net/http"
	"net/url"

	"github.com/chenjianpeng97/tuner-test-framework/pkg/envreg"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/executor"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/extract"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/httpclient"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/mapi"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/mauth"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/mresp"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/sqltool"
	"github.com/goccy/go-json"
)

// Token paths tried in order against a 2xx login response body.
const (
	TokenPathPrimary  = "$.data.token"
	TokenPathFallback = "$.token"
)

const DefaultTokenStorageKey = "token"

type Session struct {
	exec    *executor.Executor
	client  httpclient.HttpClient
	token   string
	cookies []httpclient.Cookie
}

// New builds a session with its own executor. A nil client falls back to the
// shared default transport.
func New(envs *envreg.Registry, client httpclient.HttpClient, sqlRunner sqltool.Runner) *Session {
	if client == nil {
		client = httpclient.New()
	}
	return &Session{
		exec:   executor.New(client, envs, sqlRunner),
		client: client,
	}
}

func (s *Session) Executor() *executor.Executor {
	return s.exec
}

func (s *Session) Token() string {
	return s.token
}

// Login executes loginModel once with the credentials exposed as the
// {{username}} and {{password}} context variables. On a 2xx response it
// records cookies and extracts a token via the primary then fallback path;
// when neither matches, the session stays unauthenticated without failing.
// A non-2xx status returns (false, nil) and the caller decides fatality.
func (s *Session) Login(ctx context.Context, username, password string, loginModel *mapi.APIModel) (bool, error) {
	s.exec.SetVariable("username", username)
	s.exec.SetVariable("password", password)

	resp, err := s.exec.Execute(ctx, loginModel, nil)
	if err != nil {
		return false, err
	}

	for name, value := range resp.Cookies {
		s.cookies = append(s.cookies, httpclient.Cookie{Name: name, Value: value})
	}

	if !resp.IsSuccess() {
		return false, nil
	}

	if token, ok := extract.Extract(resp.Body, TokenPathPrimary); ok {
		s.token = tokenString(token)
	} else if token, ok := extract.Extract(resp.Body, TokenPathFallback); ok {
		s.token = tokenString(token)
	}
	return true, nil
}

// Execute delegates to the executor. When the session holds a token and
// neither the model nor the overrides configure auth, a Bearer auth is
// injected; an explicitly configured model is never overridden.
func (s *Session) Execute(ctx context.Context, api *mapi.APIModel, over *executor.Overrides) (*mresp.APIResponse, error) {
	if s.token != "" && api.Auth.Kind == mauth.AuthKindNone && (over == nil || over.Auth == nil) {
		injected := executor.Overrides{}
		if over != nil {
			injected = *over
		}
		auth := mauth.Bearer(s.token)
		injected.Auth = &auth
		over = &injected
	}
	return s.exec.Execute(ctx, api, over)
}

func tokenString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// StorageCookie matches the cookie shape browser automation drivers accept.
type StorageCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

type LocalStorageItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type OriginState struct {
	Origin       string             `json:"origin"`
	LocalStorage []LocalStorageItem `json:"localStorage"`
}

// StorageState is the portable cookie/token bundle a UI-automation
// collaborator seeds an authenticated browsing context from.
type StorageState struct {
	Cookies []StorageCookie `json:"cookies"`
	Origins []OriginState   `json:"origins"`
}

// GetStorageState exports the session's cookies and token for origin. An
// empty origin falls back to the current environment's URL prefix. The
// token, when present, lands in localStorage under tokenKey (default
// "token").
func (s *Session) GetStorageState(origin, tokenKey string) StorageState {
	if origin == "" {
		origin = s.exec.Environments().URLPrefix()
	}
	if tokenKey == "" {
		tokenKey = DefaultTokenStorageKey
	}

	domain := ""
	if parsed, err := url.Parse(origin); err == nil {
		domain = parsed.Hostname()
	}

	state := StorageState{
		Cookies: make([]StorageCookie, 0, len(s.cookies)),
		Origins: []OriginState{},
	}
	for _, c := range s.cookies {
		state.Cookies = append(state.Cookies, StorageCookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: domain,
			Path:   "/",
		})
	}
	if s.token != "" {
		state.Origins = append(state.Origins, OriginState{
			Origin:       origin,
			LocalStorage: []LocalStorageItem{{Name: tokenKey, Value: s.token}},
		})
	}
	return state
}

// StorageStateJSON renders the snapshot in the wire shape the browser
// collaborator consumes.
func (s *Session) StorageStateJSON(origin, tokenKey string) ([]byte, error) {
	return json.Marshal(s.GetStorageState(origin, tokenKey))
}

// Close releases the transport client's pooled connections.
func (s *Session) Close() {
	if hc, ok := s.client.(*http.Client); ok {
		hc.CloseIdleConnections()
	}
}
