// Package extract evaluates path expressions over structured documents.
// Paths use the $.a.b[0].c form; evaluation is delegated to gval over the
// decoded document, the way the assertion engine walks response roots.
package extract

import (
	"context"
	"strings"
	"unicode"

	"github.com/PaesslerAG/gval"
)

// Absent is the sentinel stored when a path matches nothing. It is a defined
// value, distinguishable from an untouched variable only by convention:
// assertions treat both as non-existent.
type AbsentValue struct{}

func (AbsentValue) String() string { return "<absent>" }

var Absent = AbsentValue{}

// IsAbsent reports whether v is the miss sentinel or nil.
func IsAbsent(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(AbsentValue)
	return ok
}

var pathLanguage = gval.NewLanguage(
	gval.Full(),
	gval.Init(func(ctx context.Context, p *gval.Parser) (gval.Evaluable, error) {
		p.SetIsIdentRuneFunc(func(r rune, pos int) bool {
			return unicode.IsLetter(r) || r == '_' || (pos > 0 && unicode.IsDigit(r)) || (pos > 0 && r == '-')
		})
		return p.ParseExpression(ctx)
	}),
)

// Extract resolves path against doc. The second return reports whether the
// path matched; a miss is never an error.
func Extract(doc any, path string) (any, bool) {
	normalized, ok := normalize(path)
	if !ok {
		return Absent, false
	}
	if normalized == "" {
		return doc, true
	}

	value, err := pathLanguage.Evaluate(normalized, doc)
	if err != nil || value == nil {
		return Absent, false
	}
	return value, true
}

// ExtractAll resolves path to a sequence of values. A path containing [*]
// fans out over the slice at that point; otherwise a slice result is
// returned element-wise and a scalar result as a single-element sequence.
// A miss yields an empty, non-nil sequence.
func ExtractAll(doc any, path string) []any {
	if idx := strings.Index(path, "[*]"); idx != -1 {
		head, tail := path[:idx], path[idx+len("[*]"):]
		tail = strings.TrimPrefix(tail, ".")

		base, ok := Extract(doc, head)
		if !ok {
			return []any{}
		}
		items, ok := base.([]any)
		if !ok {
			return []any{}
		}

		out := make([]any, 0, len(items))
		for _, item := range items {
			if tail == "" {
				out = append(out, item)
				continue
			}
			if v, ok := Extract(item, "$."+tail); ok {
				out = append(out, v)
			}
		}
		return out
	}

	value, ok := Extract(doc, path)
	if !ok {
		return []any{}
	}
	if items, ok := value.([]any); ok {
		return items
	}
	return []any{value}
}

// Exists reports whether path matches a value in doc.
func Exists(doc any, path string) bool {
	_, ok := Extract(doc, path)
	return ok
}

func normalize(path string) (string, bool) {
	p := strings.TrimSpace(path)
	if p == "" {
		return "", false
	}
	if p == "$" {
		return "", true
	}
	if strings.HasPrefix(p, "$.") {
		return p[2:], true
	}
	if strings.HasPrefix(p, "$[") {
		return p[1:], true
	}
	// plain dot paths are accepted as-is
	return p, true
}
