package envreg_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chenjianpeng97/tuner-test-framework/pkg/apierr"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/envreg"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/menv"
)

func TestSwitchUnregistered(t *testing.T) {
	r := envreg.New(menv.Env{Name: "test", URLPrefix: "https://t.example.com"})

	err := r.Switch("staging")
	var cfgErr *apierr.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestURLPrefixUnconfigured(t *testing.T) {
	r := envreg.New(menv.Env{Name: "test", URLPrefix: "https://t.example.com"})

	// nothing selected yet: unconfigured, not a failure
	if got := r.URLPrefix(); got != "" {
		t.Fatalf("URLPrefix = %q, want empty", got)
	}

	if err := r.Switch("test"); err != nil {
		t.Fatalf("Switch: %v", err)
	}
	if got := r.URLPrefix(); got != "https://t.example.com" {
		t.Fatalf("URLPrefix = %q", got)
	}
}

func TestRegisterOverwrites(t *testing.T) {
	r, err := envreg.NewWithCurrent("test", menv.Env{Name: "test", URLPrefix: "https://old.example.com"})
	if err != nil {
		t.Fatalf("NewWithCurrent: %v", err)
	}

	r.Register(menv.Env{Name: "test", URLPrefix: "https://new.example.com"})
	if got := r.URLPrefix(); got != "https://new.example.com" {
		t.Fatalf("URLPrefix = %q", got)
	}
}

func TestVariables(t *testing.T) {
	r, err := envreg.NewWithCurrent("test", menv.Env{
		Name:      "test",
		URLPrefix: "https://t.example.com",
		Variables: map[string]string{"tenant": "qa"},
	})
	if err != nil {
		t.Fatalf("NewWithCurrent: %v", err)
	}

	if v, ok := r.Variable("tenant"); !ok || v != "qa" {
		t.Fatalf("tenant = %q, %v", v, ok)
	}
	if _, ok := r.Variable("missing"); ok {
		t.Fatal("missing variable reported present")
	}

	vars := r.Variables()
	vars["tenant"] = "mutated"
	if v, _ := r.Variable("tenant"); v != "qa" {
		t.Fatal("Variables must return a copy")
	}
}

func TestRegisterFile(t *testing.T) {
	content := `environments:
  - name: test
    url_prefix: https://t.example.com
    variables:
      tenant: qa
  - name: prod
    url_prefix: https://api.example.com
`
	path := filepath.Join(t.TempDir(), "environments.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	r := envreg.New()
	if err := r.RegisterFile(path); err != nil {
		t.Fatalf("RegisterFile: %v", err)
	}
	if err := r.Switch("prod"); err != nil {
		t.Fatalf("Switch: %v", err)
	}
	if got := r.URLPrefix(); got != "https://api.example.com" {
		t.Fatalf("URLPrefix = %q", got)
	}

	if err := r.Switch("test"); err != nil {
		t.Fatalf("Switch: %v", err)
	}
	if v, _ := r.Variable("tenant"); v != "qa" {
		t.Fatalf("tenant = %q", v)
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := envreg.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	var cfgErr *apierr.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}
