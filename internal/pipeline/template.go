package pipeline

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Scope is the template lookup context available to every step (spec
// §4.6): sessionId, targetId, the previous step's report ("last"), and
// every aliased report so far ("steps.<alias>").
type Scope struct {
	SessionID string
	TargetID  string
	Last      map[string]any
	Steps     map[string]map[string]any
}

var templateExpr = regexp.MustCompile(`^\$\{([^}]+)\}$`)

// ResolveFields substitutes `${expr}` placeholders in every string leaf of
// fields against scope, returning a new map. Assignment is copy-by-value:
// non-template values pass through unchanged; a whole-string template
// preserves the resolved value's original type (spec §4.6 "type preserved
// where unambiguous") rather than coercing it to a string.
func ResolveFields(fields map[string]json.RawMessage, scope Scope) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for key, raw := range fields {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			out[key] = string(raw)
			continue
		}
		out[key] = resolveValue(v, scope)
	}
	return out, nil
}

func resolveValue(v any, scope Scope) any {
	switch t := v.(type) {
	case string:
		return resolveString(t, scope)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = resolveValue(item, scope)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = resolveValue(item, scope)
		}
		return out
	default:
		return v
	}
}

// resolveString substitutes a single `${expr}` template. A string that is
// entirely one template expression resolves to the looked-up value's
// native type; a template embedded in a larger string resolves to its
// string representation, stitched in place.
func resolveString(s string, scope Scope) any {
	if m := templateExpr.FindStringSubmatch(s); m != nil {
		val, ok := lookupPath(scope, strings.TrimSpace(m[1]))
		if !ok {
			return nil
		}
		return val
	}

	return replaceEmbedded(s, scope)
}

var embeddedExpr = regexp.MustCompile(`\$\{([^}]+)\}`)

func replaceEmbedded(s string, scope Scope) string {
	return embeddedExpr.ReplaceAllStringFunc(s, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-1])
		val, ok := lookupPath(scope, expr)
		if !ok {
			return match
		}
		return stringify(val)
	})
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// lookupPath resolves a dot-path against scope: "sessionId", "targetId",
// "last.<path>", or "steps.<alias>.<path>" (spec §4.6).
func lookupPath(scope Scope, path string) (any, bool) {
	parts := strings.Split(path, ".")
	if len(parts) == 0 {
		return nil, false
	}

	switch parts[0] {
	case "sessionId":
		return scope.SessionID, true
	case "targetId":
		return scope.TargetID, true
	case "last":
		return dotGet(scope.Last, parts[1:])
	case "steps":
		if len(parts) < 2 {
			return nil, false
		}
		report, ok := scope.Steps[parts[1]]
		if !ok {
			return nil, false
		}
		return dotGet(report, parts[2:])
	default:
		return nil, false
	}
}

// dotGet walks a map[string]any (typically a report flattened through
// JSON) by successive keys.
func dotGet(root map[string]any, path []string) (any, bool) {
	var cur any = root
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// ToMap flattens any JSON-marshalable value (a *actions.Report, typically)
// into a generic map for dot-path lookups.
func ToMap(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}
