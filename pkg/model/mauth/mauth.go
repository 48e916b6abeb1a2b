// Package mauth models request authentication as a closed tagged union.
// Apply is a pure transformation of the outgoing wire request.
package mauth

import (
	"strings"

	"github.com/chenjianpeng97/tuner-test-framework/pkg/apierr"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/httpclient"
)

type AuthKind int8

const (
	AuthKindNone AuthKind = iota
	AuthKindBearer
	AuthKindAPIKey
	AuthKindBasic
)

type AddTo int8

const (
	AddToHeader AddTo = iota
	AddToQuery
)

const (
	HeaderAuthorization = "Authorization"
	DefaultBearerPrefix = "Bearer"
)

type Auth struct {
	Kind AuthKind

	// Bearer payload
	Token  string
	Prefix string

	// APIKey payload
	Key   string
	Value string
	AddTo AddTo

	// Basic payload. Reserved: Apply fails loudly rather than sending an
	// unauthenticated request.
	Username string
	Password string
}

func None() Auth {
	return Auth{Kind: AuthKindNone}
}

func Bearer(token string) Auth {
	return Auth{Kind: AuthKindBearer, Token: token}
}

func BearerWithPrefix(token, prefix string) Auth {
	return Auth{Kind: AuthKindBearer, Token: token, Prefix: prefix}
}

func APIKey(key, value string, addTo AddTo) Auth {
	return Auth{Kind: AuthKindAPIKey, Key: key, Value: value, AddTo: addTo}
}

func Basic(username, password string) Auth {
	return Auth{Kind: AuthKindBasic, Username: username, Password: password}
}

// Apply injects credentials into req. It runs last during request build, so
// a credential header wins any collision with manually declared headers.
func (a Auth) Apply(req *httpclient.Request) error {
	switch a.Kind {
	case AuthKindNone:
		return nil
	case AuthKindBearer:
		prefix := a.Prefix
		if prefix == "" {
			prefix = DefaultBearerPrefix
		}
		setHeader(req, HeaderAuthorization, prefix+" "+a.Token)
		return nil
	case AuthKindAPIKey:
		switch a.AddTo {
		case AddToQuery:
			req.Queries = append(req.Queries, httpclient.Query{Key: a.Key, Value: a.Value})
		default:
			setHeader(req, a.Key, a.Value)
		}
		return nil
	case AuthKindBasic:
		return apierr.NewBuildError("auth", "basic auth is not implemented")
	default:
		return apierr.NewBuildError("auth", "unknown auth kind")
	}
}

func setHeader(req *httpclient.Request, key, value string) {
	for i, h := range req.Headers {
		if strings.EqualFold(h.Key, key) {
			req.Headers[i].Value = value
			return
		}
	}
	req.Headers = append(req.Headers, httpclient.Header{Key: key, Value: value})
}
