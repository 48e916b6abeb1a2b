// Package operation implements the pre/post-request pipeline: a closed
// tagged union of side effects and checks that read and write one shared
// execution context.
package operation

import (
	"context"
	"fmt"
	"time"

	"github.com/chenjianpeng97/tuner-test-framework/pkg/apierr"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/assertion"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/extract"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/sqltool"
	"github.com/expr-lang/expr"
)

type Kind int8

const (
	KindUnknown Kind = iota
	KindSQLQuery
	KindSQLExecute
	KindExtract
	KindAssert
	KindSetVar
	KindWait
	KindScript
)

func (k Kind) String() string {
	switch k {
	case KindSQLQuery:
		return "sql_query"
	case KindSQLExecute:
		return "sql_execute"
	case KindExtract:
		return "extract"
	case KindAssert:
		return "assert"
	case KindSetVar:
		return "set_var"
	case KindWait:
		return "wait"
	case KindScript:
		return "script"
	default:
		return "unknown"
	}
}

type Source int8

const (
	SourceResponse Source = iota
	SourceRequest
	SourceVariable
)

// Context is the mutable scratch space threaded through one execution.
// Variables are last-write-wins; Request is operation-settable only;
// Response is overwritten by the executor after each send.
type Context struct {
	Variables map[string]any
	Request   any
	Response  any
}

func NewContext() *Context {
	return &Context{Variables: make(map[string]any)}
}

func (c *Context) GetVariable(name string) any {
	return c.Variables[name]
}

func (c *Context) SetVariable(name string, value any) {
	c.Variables[name] = value
}

// Operation is one named, orderable pipeline step. The Kind tag decides
// which parameter fields apply.
type Operation struct {
	Kind    Kind
	Name    string
	Enabled bool

	// SQLQuery and SQLExecute
	SQL       string
	SQLParams []any
	ResultVar string

	// Extract and Assert
	Source       Source
	Path         string
	VariableName string
	Operator     assertion.Operator
	Expected     any
	Message      string

	// SetVar
	Value any

	// Wait
	Duration time.Duration

	// Script
	Expr string
}

func SQLQuery(name, stmt, resultVar string, params ...any) Operation {
	return Operation{Kind: KindSQLQuery, Name: name, Enabled: true, SQL: stmt, ResultVar: resultVar, SQLParams: params}
}

func SQLExecute(name, stmt string, params ...any) Operation {
	return Operation{Kind: KindSQLExecute, Name: name, Enabled: true, SQL: stmt, SQLParams: params}
}

func Extract(name, path, variableName string) Operation {
	return Operation{Kind: KindExtract, Name: name, Enabled: true, Source: SourceResponse, Path: path, VariableName: variableName}
}

func ExtractFrom(name string, source Source, path, variableName string) Operation {
	return Operation{Kind: KindExtract, Name: name, Enabled: true, Source: source, Path: path, VariableName: variableName}
}

func Assert(name, path string, op assertion.Operator, expected any) Operation {
	return Operation{Kind: KindAssert, Name: name, Enabled: true, Source: SourceResponse, Path: path, Operator: op, Expected: expected}
}

func AssertVariable(name, variableName string, op assertion.Operator, expected any) Operation {
	return Operation{Kind: KindAssert, Name: name, Enabled: true, Source: SourceVariable, VariableName: variableName, Operator: op, Expected: expected}
}

func SetVar(name, variableName string, value any) Operation {
	return Operation{Kind: KindSetVar, Name: name, Enabled: true, VariableName: variableName, Value: value}
}

func Wait(name string, d time.Duration) Operation {
	return Operation{Kind: KindWait, Name: name, Enabled: true, Duration: d}
}

func Script(name, expression, resultVar string) Operation {
	return Operation{Kind: KindScript, Name: name, Enabled: true, Expr: expression, ResultVar: resultVar}
}

// Disable returns a copy with Enabled unset, for declaring a step that is
// temporarily switched off in a model.
func (op Operation) Disable() Operation {
	op.Enabled = false
	return op
}

// Deps carries the external collaborators operations may call.
type Deps struct {
	SQL sqltool.Runner
}

// Execute runs one operation against the shared context.
func (op Operation) Execute(ctx context.Context, c *Context, deps Deps) error {
	switch op.Kind {
	case KindSQLQuery:
		if deps.SQL == nil {
			return apierr.NewDataAccessError(op.SQL, fmt.Errorf("no sql runner configured"))
		}
		rows, err := deps.SQL.Query(ctx, op.SQL, op.SQLParams...)
		if err != nil {
			return err
		}
		c.Variables[op.ResultVar] = rows
		return nil

	case KindSQLExecute:
		if deps.SQL == nil {
			return apierr.NewDataAccessError(op.SQL, fmt.Errorf("no sql runner configured"))
		}
		affected, err := deps.SQL.Exec(ctx, op.SQL, op.SQLParams...)
		if err != nil {
			return err
		}
		// the side effect lives in the external store; the count is kept
		// only when the author asked for it
		if op.ResultVar != "" {
			c.Variables[op.ResultVar] = affected
		}
		return nil

	case KindExtract:
		doc := c.Response
		if op.Source == SourceRequest {
			doc = c.Request
		}
		value, ok := extract.Extract(doc, op.Path)
		if !ok {
			c.Variables[op.VariableName] = extract.Absent
			return nil
		}
		c.Variables[op.VariableName] = value
		return nil

	case KindAssert:
		actual := op.actualValue(c)
		return assertion.Evaluate(op.Operator, actual, op.Expected, op.Message)

	case KindSetVar:
		c.Variables[op.VariableName] = op.Value
		return nil

	case KindWait:
		// deliberate blocking delay, no cancellation; used for
		// eventual-consistency waits between calls
		time.Sleep(op.Duration)
		return nil

	case KindScript:
		env := map[string]any{
			"vars":     c.Variables,
			"request":  c.Request,
			"response": c.Response,
		}
		out, err := expr.Eval(op.Expr, env)
		if err != nil {
			return fmt.Errorf("script %q: %w", op.Name, err)
		}
		if op.ResultVar != "" {
			c.Variables[op.ResultVar] = out
		}
		return nil

	default:
		return apierr.NewConfigError("unknown operation kind %d", op.Kind)
	}
}

func (op Operation) actualValue(c *Context) any {
	if op.Source == SourceVariable {
		v, ok := c.Variables[op.VariableName]
		if !ok {
			return extract.Absent
		}
		return v
	}

	doc := c.Response
	if op.Source == SourceRequest {
		doc = c.Request
	}
	value, ok := extract.Extract(doc, op.Path)
	if !ok {
		return extract.Absent
	}
	return value
}

// Run executes ops strictly in declaration order. Disabled operations are
// skipped with zero side effects; the first error aborts the rest of the
// phase.
func Run(ctx context.Context, ops []Operation, c *Context, deps Deps) error {
	for _, op := range ops {
		if !op.Enabled {
			continue
		}
		if err := op.Execute(ctx, c, deps); err != nil {
			if op.Name != "" {
				return fmt.Errorf("operation %q: %w", op.Name, err)
			}
			return err
		}
	}
	return nil
}
