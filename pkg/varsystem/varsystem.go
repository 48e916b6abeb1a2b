// Package varsystem replaces {{key}} references in request text (URL,
// header values, query values, serialized bodies) with variable values.
package varsystem

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chenjianpeng97/tuner-test-framework/pkg/model/mvar"
)

var (
	ErrKeyNotFound = fmt.Errorf("key not found")
	ErrInvalidKey  = fmt.Errorf("invalid key")
)

type VarMap map[string]mvar.Var

func NewVarMap(vars []mvar.Var) VarMap {
	varMap := make(VarMap, len(vars))
	for _, v := range vars {
		varMap[v.VarKey] = v
	}
	return varMap
}

// NewVarMapFromAny stringifies arbitrary variable values so that numbers and
// booleans extracted from responses can feed back into request text.
func NewVarMapFromAny(vars map[string]any) VarMap {
	varMap := make(VarMap, len(vars))
	for k, v := range vars {
		varMap[k] = mvar.Var{VarKey: k, Value: Stringify(v)}
	}
	return varMap
}

func (vm VarMap) Get(varKey string) (mvar.Var, bool) {
	val, ok := vm[strings.TrimSpace(varKey)]
	if !ok {
		return mvar.Var{}, false
	}
	return val, true
}

func (vm VarMap) Set(varKey, value string) {
	vm[varKey] = mvar.Var{VarKey: varKey, Value: value}
}

// Merge returns a copy of vm with overrides applied per key.
func (vm VarMap) Merge(overrides VarMap) VarMap {
	merged := make(VarMap, len(vm)+len(overrides))
	for k, v := range vm {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// {{varKey}}
func GetVarKeyFromRaw(raw string) string {
	return raw[mvar.PrefixSize : len(raw)-mvar.SuffixSize]
}

func CheckIsVar(varKey string) bool {
	return CheckPrefix(varKey) && CheckSuffix(varKey)
}

func CheckPrefix(varKey string) bool {
	return len(varKey) >= mvar.PrefixSize && varKey[:mvar.PrefixSize] == mvar.Prefix
}

func CheckSuffix(varKey string) bool {
	return len(varKey) >= mvar.SuffixSize && varKey[len(varKey)-mvar.SuffixSize:] == mvar.Suffix
}

func CheckStringHasAnyVarKey(raw string) bool {
	return strings.Contains(raw, mvar.Prefix) && strings.Contains(raw, mvar.Suffix)
}

// ReplaceVars substitutes every {{ key }} reference in raw.
// Returns ErrKeyNotFound when a referenced key is missing and ErrInvalidKey
// when a reference never closes.
func (vm VarMap) ReplaceVars(raw string) (string, error) {
	var result strings.Builder
	for {
		startIndex := strings.Index(raw, mvar.Prefix)
		if startIndex == -1 {
			result.WriteString(raw)
			break
		}

		endIndex := strings.Index(raw[startIndex:], mvar.Suffix)
		if endIndex == -1 {
			return "", ErrInvalidKey
		}

		rawVar := raw[startIndex : startIndex+endIndex+mvar.SuffixSize]
		if !CheckIsVar(rawVar) {
			return "", ErrInvalidKey
		}

		key := GetVarKeyFromRaw(rawVar)
		val, ok := vm.Get(key)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrKeyNotFound, strings.TrimSpace(key))
		}

		result.WriteString(raw[:startIndex])
		result.WriteString(val.Value)
		raw = raw[startIndex+len(rawVar):]
	}

	return result.String(), nil
}

func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
