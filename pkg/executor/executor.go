// Package executor orchestrates one API call: run pre-operations, build the
// wire request from the model plus call-time overrides, send it over the
// shared transport client, capture the response, run post-operations.
package executor

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/chenjianpeng97/tuner-test-framework/pkg/apierr"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/envreg"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/httpclient"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/mapi"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/mauth"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/mbody"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/mresp"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/mvar"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/operation"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/sqltool"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/varsystem"
	"github.com/goccy/go-json"
)

// Overrides adjust a single call without touching the model. Params and
// headers merge per key over the model's defaults; Body and Auth replace
// the model's values entirely when set.
type Overrides struct {
	PathParams   map[string]any
	ExtraParams  map[string]string
	ExtraHeaders map[string]string
	Body         *mbody.Body
	Auth         *mauth.Auth
	Timeout      time.Duration
}

type Executor struct {
	client httpclient.HttpClient
	envs   *envreg.Registry
	deps   operation.Deps

	// Context persists across executions of this executor; only Response is
	// auto-populated, after each send.
	Context *operation.Context

	// Logger is optional ambient logging; the core never logs assertion
	// outcomes, the returned error carries the whole signal.
	Logger *slog.Logger
}

func New(client httpclient.HttpClient, envs *envreg.Registry, sqlRunner sqltool.Runner) *Executor {
	if client == nil {
		client = httpclient.New()
	}
	if envs == nil {
		envs = envreg.New()
	}
	return &Executor{
		client:  client,
		envs:    envs,
		deps:    operation.Deps{SQL: sqlRunner},
		Context: operation.NewContext(),
	}
}

func (e *Executor) Environments() *envreg.Registry {
	return e.envs
}

func (e *Executor) GetVariable(name string) any {
	return e.Context.GetVariable(name)
}

func (e *Executor) SetVariable(name string, value any) {
	e.Context.SetVariable(name, value)
}

// Execute runs one pass of BUILD → SEND → POST-PROCESS. There are no
// implicit retries; callers own retry policy. Transport failures return a
// TransportError and skip post-operations entirely.
func (e *Executor) Execute(ctx context.Context, api *mapi.APIModel, over *Overrides) (*mresp.APIResponse, error) {
	if over == nil {
		over = &Overrides{}
	}

	if err := operation.Run(ctx, api.PreRequest, e.Context, e.deps); err != nil {
		return nil, err
	}

	req, timeout, err := e.buildRequest(api, over)
	if err != nil {
		return nil, err
	}

	if e.Logger != nil {
		e.Logger.DebugContext(ctx, "sending request", slog.String("method", req.Method), slog.String("url", req.URL))
	}

	sendCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	wire, err := httpclient.DoRequest(sendCtx, e.client, req)
	if err != nil {
		return nil, apierr.NewTransportError(req.URL, err)
	}

	resp := convertResponse(wire)
	e.Context.Response = resp.Body

	if e.Logger != nil {
		e.Logger.DebugContext(ctx, "response received",
			slog.Int("status", resp.StatusCode), slog.Duration("elapsed", resp.Elapsed))
	}

	if err := operation.Run(ctx, api.PostRequest, e.Context, e.deps); err != nil {
		return nil, err
	}

	return resp, nil
}

var pathParamPattern = regexp.MustCompile(`\{([A-Za-z0-9_][A-Za-z0-9_.-]*)\}`)

func (e *Executor) buildRequest(api *mapi.APIModel, over *Overrides) (*httpclient.Request, time.Duration, error) {
	vm := e.interpolationVars()

	// URL template: {{var}} interpolation first, then strict {name} path
	// parameters. Path values come from call overrides merged over context
	// variables, so pre-request operations can feed the same build.
	rawURL := api.URL
	if varsystem.CheckStringHasAnyVarKey(rawURL) {
		replaced, err := vm.ReplaceVars(rawURL)
		if err != nil {
			return nil, 0, apierr.NewBuildErrorCause("url", "interpolate url template", err)
		}
		rawURL = replaced
	}

	rawURL, err := substitutePathParams(rawURL, e.pathValues(over.PathParams))
	if err != nil {
		return nil, 0, err
	}

	prefix := api.URLPrefix
	if prefix == "" {
		prefix = e.envs.URLPrefix()
	}

	queries, err := e.mergePairs(vm, api.Params, over.ExtraParams, "query")
	if err != nil {
		return nil, 0, err
	}

	headerPairs, err := e.mergePairs(vm, api.Headers, over.ExtraHeaders, "header")
	if err != nil {
		return nil, 0, err
	}

	body := api.Body
	if over.Body != nil {
		// call-time body replaces the model body, it never merges
		body = *over.Body
	}
	payload, contentType, err := body.Serialize()
	if err != nil {
		return nil, 0, err
	}
	if len(payload) > 0 && varsystem.CheckStringHasAnyVarKey(string(payload)) {
		replaced, err := vm.ReplaceVars(string(payload))
		if err != nil {
			return nil, 0, apierr.NewBuildErrorCause("body", "interpolate body", err)
		}
		payload = []byte(replaced)
	}

	clientHeaders := make([]httpclient.Header, 0, len(headerPairs)+1)
	for _, p := range headerPairs {
		clientHeaders = append(clientHeaders, httpclient.Header{Key: p[0], Value: p[1]})
	}
	if contentType != "" && !hasHeader(clientHeaders, "Content-Type") {
		clientHeaders = append(clientHeaders, httpclient.Header{Key: "Content-Type", Value: contentType})
	}

	clientQueries := make([]httpclient.Query, 0, len(queries))
	for _, p := range queries {
		clientQueries = append(clientQueries, httpclient.Query{Key: p[0], Value: p[1]})
	}

	cookies := make([]httpclient.Cookie, 0, len(api.Cookies))
	for _, name := range sortedKeys(api.Cookies) {
		cookies = append(cookies, httpclient.Cookie{Name: name, Value: api.Cookies[name]})
	}

	req := &httpclient.Request{
		Method:  api.Method,
		URL:     prefix + rawURL,
		Queries: clientQueries,
		Headers: clientHeaders,
		Cookies: cookies,
		Body:    payload,
	}

	// auth runs last so a credential header wins any manual collision
	auth := api.Auth
	if over.Auth != nil {
		auth = *over.Auth
	}
	if err := auth.Apply(req); err != nil {
		return nil, 0, err
	}

	timeout := api.Timeout
	if over.Timeout > 0 {
		timeout = over.Timeout
	}
	if timeout <= 0 {
		timeout = httpclient.TimeoutRequest
	}
	return req, timeout, nil
}

// interpolationVars layers context variables over the current environment's
// variables for {{var}} replacement.
func (e *Executor) interpolationVars() varsystem.VarMap {
	envVars := e.envs.Variables()
	vm := make(varsystem.VarMap, len(envVars)+len(e.Context.Variables))
	for k, v := range envVars {
		vm[k] = mvar.Var{VarKey: k, Value: v}
	}
	for k, v := range e.Context.Variables {
		vm[k] = mvar.Var{VarKey: k, Value: varsystem.Stringify(v)}
	}
	return vm
}

func (e *Executor) pathValues(overrides map[string]any) map[string]string {
	values := make(map[string]string, len(e.Context.Variables)+len(overrides))
	for k, v := range e.Context.Variables {
		values[k] = varsystem.Stringify(v)
	}
	for k, v := range overrides {
		values[k] = varsystem.Stringify(v)
	}
	return values
}

// substitutePathParams replaces every {name} placeholder. An unresolved
// placeholder is a build-time error; no network call happens.
func substitutePathParams(url string, values map[string]string) (string, error) {
	var missing string
	result := pathParamPattern.ReplaceAllStringFunc(url, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := values[name]; ok {
			return v
		}
		if missing == "" {
			missing = name
		}
		return match
	})
	if missing != "" {
		return "", apierr.NewBuildError("url", "unresolved path parameter {"+missing+"}")
	}
	return result, nil
}

// mergePairs merges call-time extras over model defaults per key, then
// interpolates values. Keys come out in stable sorted order.
func (e *Executor) mergePairs(vm varsystem.VarMap, defaults, extras map[string]string, field string) ([][2]string, error) {
	merged := make(map[string]string, len(defaults)+len(extras))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range extras {
		merged[k] = v
	}

	pairs := make([][2]string, 0, len(merged))
	for _, k := range sortedKeys(merged) {
		v := merged[k]
		if varsystem.CheckStringHasAnyVarKey(v) {
			replaced, err := vm.ReplaceVars(v)
			if err != nil {
				return nil, apierr.NewBuildErrorCause(field, "interpolate "+k, err)
			}
			v = replaced
		}
		pairs = append(pairs, [2]string{k, v})
	}
	return pairs, nil
}

func hasHeader(headers []httpclient.Header, key string) bool {
	for _, h := range headers {
		if strings.EqualFold(h.Key, key) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func convertResponse(wire httpclient.Response) *mresp.APIResponse {
	headers := make(map[string]string, len(wire.Headers))
	for _, h := range wire.Headers {
		headers[h.Key] = h.Value
	}
	cookies := make(map[string]string, len(wire.Cookies))
	for _, c := range wire.Cookies {
		cookies[c.Name] = c.Value
	}

	// best-effort structured body; raw text is always kept
	var structured any
	if json.Valid(wire.Body) {
		decoder := json.NewDecoder(bytes.NewReader(wire.Body))
		decoder.UseNumber()
		var decoded any
		if err := decoder.Decode(&decoded); err == nil {
			structured = decoded
		}
	}

	return &mresp.APIResponse{
		StatusCode: wire.StatusCode,
		Headers:    headers,
		Cookies:    cookies,
		Body:       structured,
		Elapsed:    wire.Duration,
		RawText:    string(wire.Body),
	}
}
