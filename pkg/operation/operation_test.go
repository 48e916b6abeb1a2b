package operation_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chenjianpeng97/tuner-test-framework/pkg/apierr"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/assertion"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/extract"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/operation"
)

type fakeRunner struct {
	queries  []string
	execs    []string
	rows     []map[string]any
	affected int64
	err      error
}

func (f *fakeRunner) Query(_ context.Context, stmt string, _ ...any) ([]map[string]any, error) {
	f.queries = append(f.queries, stmt)
	return f.rows, f.err
}

func (f *fakeRunner) Exec(_ context.Context, stmt string, _ ...any) (int64, error) {
	f.execs = append(f.execs, stmt)
	return f.affected, f.err
}

func TestRunOrderAndVariables(t *testing.T) {
	ctx := context.Background()
	c := operation.NewContext()
	c.Response = map[string]any{"data": map[string]any{"id": "42"}}

	runner := &fakeRunner{rows: []map[string]any{{"id": int64(1)}}}
	ops := []operation.Operation{
		operation.SetVar("seed", "tenant", "qa"),
		operation.SQLQuery("load", "SELECT id FROM users", "users"),
		operation.Extract("grab id", "$.data.id", "user_id"),
		operation.Assert("check id", "$.data.id", assertion.OpEq, "42"),
		operation.AssertVariable("check tenant", "tenant", assertion.OpEq, "qa"),
	}

	if err := operation.Run(ctx, ops, c, operation.Deps{SQL: runner}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if c.GetVariable("tenant") != "qa" {
		t.Fatalf("tenant = %v", c.GetVariable("tenant"))
	}
	if c.GetVariable("user_id") != "42" {
		t.Fatalf("user_id = %v", c.GetVariable("user_id"))
	}
	rows, ok := c.GetVariable("users").([]map[string]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("users = %v", c.GetVariable("users"))
	}
	if len(runner.queries) != 1 {
		t.Fatalf("queries = %v", runner.queries)
	}
}

func TestRunSkipsDisabled(t *testing.T) {
	ctx := context.Background()
	c := operation.NewContext()

	ops := []operation.Operation{
		operation.SetVar("a", "a", 1).Disable(),
		operation.SetVar("b", "b", 2),
	}
	if err := operation.Run(ctx, ops, c, operation.Deps{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := c.Variables["a"]; ok {
		t.Fatal("disabled operation ran")
	}
	if c.GetVariable("b") != 2 {
		t.Fatalf("b = %v", c.GetVariable("b"))
	}
}

func TestRunAbortsOnFirstError(t *testing.T) {
	ctx := context.Background()
	c := operation.NewContext()
	c.Response = map[string]any{"code": float64(1)}

	ops := []operation.Operation{
		operation.Assert("code is zero", "$.code", assertion.OpEq, 0),
		operation.SetVar("after", "after", true),
	}
	err := operation.Run(ctx, ops, c, operation.Deps{})

	var failure *apierr.AssertionError
	if !errors.As(err, &failure) {
		t.Fatalf("err = %v, want AssertionError", err)
	}
	if _, ok := c.Variables["after"]; ok {
		t.Fatal("operations after a failure must not run")
	}
}

func TestRunWrapsErrorWithName(t *testing.T) {
	ctx := context.Background()
	c := operation.NewContext()
	c.Response = map[string]any{}

	err := operation.Run(ctx, []operation.Operation{
		operation.Assert("token present", "$.token", assertion.OpExists, nil),
	}, c, operation.Deps{})
	if err == nil || !strings.Contains(err.Error(), `operation "token present"`) {
		t.Fatalf("err = %v", err)
	}
}

func TestExtractMissStoresAbsent(t *testing.T) {
	ctx := context.Background()
	c := operation.NewContext()
	c.Response = map[string]any{"data": map[string]any{}}

	ops := []operation.Operation{
		operation.Extract("grab", "$.data.missing", "v"),
		operation.AssertVariable("absent", "v", assertion.OpNotExists, nil),
	}
	if err := operation.Run(ctx, ops, c, operation.Deps{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !extract.IsAbsent(c.GetVariable("v")) {
		t.Fatalf("v = %v, want Absent", c.GetVariable("v"))
	}
}

func TestExtractFromRequest(t *testing.T) {
	ctx := context.Background()
	c := operation.NewContext()
	c.Request = map[string]any{"id": "7"}
	c.Response = map[string]any{"id": "other"}

	op := operation.ExtractFrom("grab", operation.SourceRequest, "$.id", "req_id")
	if err := op.Execute(ctx, c, operation.Deps{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.GetVariable("req_id") != "7" {
		t.Fatalf("req_id = %v", c.GetVariable("req_id"))
	}
}

func TestSQLWithoutRunner(t *testing.T) {
	ctx := context.Background()
	c := operation.NewContext()

	err := operation.SQLQuery("load", "SELECT 1", "r").Execute(ctx, c, operation.Deps{})
	var dataErr *apierr.DataAccessError
	if !errors.As(err, &dataErr) {
		t.Fatalf("err = %v, want DataAccessError", err)
	}
}

func TestSQLExecuteResultVar(t *testing.T) {
	ctx := context.Background()
	c := operation.NewContext()
	runner := &fakeRunner{affected: 3}

	if err := operation.SQLExecute("cleanup", "DELETE FROM t").Execute(ctx, c, operation.Deps{SQL: runner}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(c.Variables) != 0 {
		t.Fatalf("variables = %v, want none without a result var", c.Variables)
	}

	op := operation.SQLExecute("cleanup", "DELETE FROM t")
	op.ResultVar = "deleted"
	if err := op.Execute(ctx, c, operation.Deps{SQL: runner}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.GetVariable("deleted") != int64(3) {
		t.Fatalf("deleted = %v", c.GetVariable("deleted"))
	}
}

func TestWait(t *testing.T) {
	ctx := context.Background()
	c := operation.NewContext()

	start := time.Now()
	if err := operation.Wait("settle", 30*time.Millisecond).Execute(ctx, c, operation.Deps{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Fatal("wait returned early")
	}
}

func TestScript(t *testing.T) {
	ctx := context.Background()
	c := operation.NewContext()
	c.SetVariable("count", 2)
	c.Response = map[string]any{"total": float64(10)}

	op := operation.Script("derive", `vars.count + response.total`, "sum")
	if err := op.Execute(ctx, c, operation.Deps{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	sum, ok := c.GetVariable("sum").(float64)
	if !ok || sum != 12 {
		t.Fatalf("sum = %v", c.GetVariable("sum"))
	}

	bad := operation.Script("broken", `nonsense(`, "out")
	if err := bad.Execute(ctx, c, operation.Deps{}); err == nil {
		t.Fatal("expected script error")
	}
}
