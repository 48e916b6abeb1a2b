// Package assertion evaluates one comparison operator against an actual and
// an expected value. A false result is an AssertionError; operands an
// ordered operator cannot compare are an AssertionTypeError, never a plain
// failure.
package assertion

import (
	"reflect"
	"strings"

	"github.com/chenjianpeng97/tuner-test-framework/pkg/apierr"
	"github.com/chenjianpeng97/tuner-test-framework/pkg/extract"
	"github.com/goccy/go-json"
)

type Operator string

const (
	OpEq          Operator = "eq"
	OpNe          Operator = "ne"
	OpGt          Operator = "gt"
	OpLt          Operator = "lt"
	OpGte         Operator = "gte"
	OpLte         Operator = "lte"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpExists      Operator = "exists"
	OpNotExists   Operator = "not_exists"
	OpIsEmpty     Operator = "is_empty"
	OpNotEmpty    Operator = "not_empty"
)

// Evaluate runs one operator. message overrides the default failure text.
// Expected is ignored by exists/not_exists/is_empty/not_empty.
func Evaluate(op Operator, actual, expected any, message string) error {
	var ok bool
	var err error

	switch op {
	case OpEq:
		ok = looseEqual(actual, expected)
	case OpNe:
		ok = !looseEqual(actual, expected)
	case OpGt, OpLt, OpGte, OpLte:
		ok, err = compareOrdered(op, actual, expected)
	case OpContains:
		ok = contains(actual, expected)
	case OpNotContains:
		ok = !contains(actual, expected)
	case OpExists:
		ok = !extract.IsAbsent(actual)
	case OpNotExists:
		ok = extract.IsAbsent(actual)
	case OpIsEmpty:
		ok, err = isEmpty(op, actual)
	case OpNotEmpty:
		ok, err = isEmpty(op, actual)
		ok = !ok
	default:
		return apierr.NewConfigError("unsupported assertion operator: %s", op)
	}

	if err != nil {
		return err
	}
	if !ok {
		return &apierr.AssertionError{
			Operator: string(op),
			Actual:   actual,
			Expected: expected,
			Msg:      message,
		}
	}
	return nil
}

// looseEqual compares values with numeric coercion so a json.Number("42")
// from a decoded response equals the literal 42.
func looseEqual(a, b any) bool {
	if extract.IsAbsent(a) && extract.IsAbsent(b) {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func compareOrdered(op Operator, a, b any) (bool, error) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return orderedResult(op, compareFloat(af, bf)), nil
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return orderedResult(op, strings.Compare(as, bs)), nil
	}

	return false, &apierr.AssertionTypeError{Operator: string(op), Actual: a, Expected: b}
}

func orderedResult(op Operator, cmp int) bool {
	switch op {
	case OpGt:
		return cmp > 0
	case OpLt:
		return cmp < 0
	case OpGte:
		return cmp >= 0
	default:
		return cmp <= 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func contains(actual, expected any) bool {
	if extract.IsAbsent(actual) {
		return false
	}

	switch a := actual.(type) {
	case string:
		if s, ok := expected.(string); ok {
			return strings.Contains(a, s)
		}
		return false
	case []any:
		for _, item := range a {
			if looseEqual(item, expected) {
				return true
			}
		}
		return false
	case map[string]any:
		key, ok := expected.(string)
		if !ok {
			return false
		}
		_, present := a[key]
		return present
	default:
		return false
	}
}

func isEmpty(op Operator, actual any) (bool, error) {
	if extract.IsAbsent(actual) {
		return true, nil
	}

	switch a := actual.(type) {
	case string:
		return len(a) == 0, nil
	case []any:
		return len(a) == 0, nil
	case map[string]any:
		return len(a) == 0, nil
	default:
		v := reflect.ValueOf(actual)
		switch v.Kind() {
		case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
			return v.Len() == 0, nil
		}
		return false, &apierr.AssertionTypeError{Operator: string(op), Actual: actual}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		// strings stay strings; "42" is not a number here
		return 0, false
	default:
		return 0, false
	}
}

// ParseOperator validates a textual operator name.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(s); op {
	case OpEq, OpNe, OpGt, OpLt, OpGte, OpLte,
		OpContains, OpNotContains, OpExists, OpNotExists,
		OpIsEmpty, OpNotEmpty:
		return op, nil
	default:
		return "", apierr.NewConfigError("unsupported assertion operator: %s", s)
	}
}
