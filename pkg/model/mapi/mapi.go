// Package mapi holds the declarative API model: one endpoint's default
// request. Models are immutable after construction; call-time overrides
// apply to an ephemeral build, never to the shared value.
package mapi

import (
	"time"

	"github.com/chenjianpeng97/tuner-test-framework/pkg/idwrap"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/mauth"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/mbody"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/operation"
)

const DefaultTimeout = 30 * time.Second

type APIModel struct {
	ID          idwrap.IDWrap
	Name        string
	Description string

	Method string
	// URL is a path template; {name} placeholders are substituted at build
	// time from call overrides merged over context variables.
	URL string
	// URLPrefix, when set, wins over the registry's current environment.
	URLPrefix string

	Params  map[string]string
	Headers map[string]string
	Cookies map[string]string
	Body    mbody.Body
	Auth    mauth.Auth

	PreRequest  []operation.Operation
	PostRequest []operation.Operation

	Timeout time.Duration
}

// New fills the fields every model needs; the caller sets the rest by
// struct literal before first use.
func New(name, method, url string) *APIModel {
	return &APIModel{
		ID:      idwrap.NewNow(),
		Name:    name,
		Method:  method,
		URL:     url,
		Body:    mbody.None(),
		Auth:    mauth.None(),
		Timeout: DefaultTimeout,
	}
}
