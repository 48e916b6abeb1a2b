// Package envreg holds the environment registry: named URL prefixes plus
// variables, with one current selection. The registry is an explicitly
// constructed value handed to executors, never process-global state.
package envreg

import (
	"os"
	"sync"

	"github.com/chenjianpeng97/tuner-test-framework/pkg/apierr"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/menv"
	"gopkg.in/yaml.v3"
)

type Registry struct {
	mu      sync.RWMutex
	envs    map[string]menv.Env
	current string
}

func New(envs ...menv.Env) *Registry {
	r := &Registry{envs: make(map[string]menv.Env, len(envs))}
	for _, env := range envs {
		r.envs[env.Name] = env
	}
	return r
}

// NewWithCurrent builds a registry and selects current immediately.
func NewWithCurrent(current string, envs ...menv.Env) (*Registry, error) {
	r := New(envs...)
	if err := r.Switch(current); err != nil {
		return nil, err
	}
	return r, nil
}

// Register inserts or overwrites by name.
func (r *Registry) Register(env menv.Env) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs[env.Name] = env
}

// Switch selects the current environment. An unregistered name is a
// configuration error reported immediately, not deferred to request time.
func (r *Registry) Switch(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.envs[name]; !ok {
		return apierr.NewConfigError("environment %q is not registered", name)
	}
	r.current = name
	return nil
}

func (r *Registry) Current() (menv.Env, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	env, ok := r.envs[r.current]
	return env, ok
}

// URLPrefix returns the current environment's prefix, or "" when nothing is
// selected. Unconfigured is a valid state, not a failure.
func (r *Registry) URLPrefix() string {
	env, ok := r.Current()
	if !ok {
		return ""
	}
	return env.URLPrefix
}

func (r *Registry) Variable(name string) (string, bool) {
	env, ok := r.Current()
	if !ok {
		return "", false
	}
	v, ok := env.Variables[name]
	return v, ok
}

// Variables returns a copy of the current environment's variable map.
func (r *Registry) Variables() map[string]string {
	env, ok := r.Current()
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(env.Variables))
	for k, v := range env.Variables {
		out[k] = v
	}
	return out
}

type envFile struct {
	Environments []menv.Env `yaml:"environments"`
}

// LoadFile reads environment definitions from a YAML document:
//
//	environments:
//	  - name: test
//	    url_prefix: https://test-api.example.com
//	    variables:
//	      tenant: qa
func LoadFile(path string) ([]menv.Env, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apierr.NewConfigError("read environment file %s: %v", path, err)
	}

	var file envFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, apierr.NewConfigError("parse environment file %s: %v", path, err)
	}
	return file.Environments, nil
}

// RegisterFile loads a YAML environment file into the registry.
func (r *Registry) RegisterFile(path string) error {
	envs, err := LoadFile(path)
	if err != nil {
		return err
	}
	for _, env := range envs {
		r.Register(env)
	}
	return nil
}
