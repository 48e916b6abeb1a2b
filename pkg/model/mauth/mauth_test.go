package mauth_test

import (
	"errors"
	"testing"

	"github.com/chenjianpeng97/tuner-test-framework/pkg/apierr"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/httpclient"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/mauth"
)

func headerValue(req *httpclient.Request, key string) (string, bool) {
	for _, h := range req.Headers {
		if h.Key == key {
			return h.Value, true
		}
	}
	return "", false
}

func TestApplyNone(t *testing.T) {
	req := &httpclient.Request{}
	if err := mauth.None().Apply(req); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(req.Headers) != 0 || len(req.Queries) != 0 {
		t.Fatal("none auth must not touch the request")
	}
}

func TestApplyBearer(t *testing.T) {
	req := &httpclient.Request{}
	if err := mauth.Bearer("abc").Apply(req); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, _ := headerValue(req, "Authorization"); got != "Bearer abc" {
		t.Fatalf("Authorization = %q", got)
	}
}

func TestApplyBearerCustomPrefix(t *testing.T) {
	req := &httpclient.Request{}
	if err := mauth.BearerWithPrefix("abc", "Token").Apply(req); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, _ := headerValue(req, "Authorization"); got != "Token abc" {
		t.Fatalf("Authorization = %q", got)
	}
}

func TestApplyBearerOverwritesCollision(t *testing.T) {
	req := &httpclient.Request{
		Headers: []httpclient.Header{{Key: "Authorization", Value: "Bearer stale"}},
	}
	if err := mauth.Bearer("fresh").Apply(req); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(req.Headers) != 1 {
		t.Fatalf("headers = %v", req.Headers)
	}
	if got, _ := headerValue(req, "Authorization"); got != "Bearer fresh" {
		t.Fatalf("Authorization = %q", got)
	}
}

func TestApplyAPIKey(t *testing.T) {
	req := &httpclient.Request{}
	if err := mauth.APIKey("X-Api-Key", "k1", mauth.AddToHeader).Apply(req); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, _ := headerValue(req, "X-Api-Key"); got != "k1" {
		t.Fatalf("X-Api-Key = %q", got)
	}

	req = &httpclient.Request{}
	if err := mauth.APIKey("api_key", "k2", mauth.AddToQuery).Apply(req); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(req.Queries) != 1 || req.Queries[0].Key != "api_key" || req.Queries[0].Value != "k2" {
		t.Fatalf("queries = %v", req.Queries)
	}
}

func TestApplyBasicFailsLoudly(t *testing.T) {
	req := &httpclient.Request{}
	err := mauth.Basic("user", "pass").Apply(req)

	var buildErr *apierr.BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("err = %v, want BuildError", err)
	}
	if len(req.Headers) != 0 {
		t.Fatal("basic auth must never pass through unauthenticated")
	}
}
