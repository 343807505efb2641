package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var (
	referencePattern     = regexp.MustCompile(`\$\{([^}]+)\}`)
	fullReferencePattern = regexp.MustCompile(`^\$\{([^}]+)\}$`)
	indexPattern         = regexp.MustCompile(`^([^\[\]]*)((?:\[\d+\])*)$`)
	indexDigitsPattern   = regexp.MustCompile(`\[(\d+)\]`)
)

// conditionOperators in matching priority order so ">=" wins over ">"
var conditionOperators = []string{"==", "!=", ">=", "<=", ">", "<", " contains "}

// Context holds a workflow run's variables and implements reference
// resolution (${path}) and condition evaluation. One engine goroutine owns
// the context; the mutex covers the parallel node's concurrent branches.
type Context struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewContext creates a context seeded with the given variables
func NewContext(initial map[string]interface{}) *Context {
	values := make(map[string]interface{}, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &Context{values: values}
}

// Get returns the named variable, or nil
func (c *Context) Get(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[name]
}

// Set stores a variable
func (c *Context) Set(name string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = value
}

// Delete removes a variable
func (c *Context) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, name)
}

// Snapshot returns a copy of all variables for persistence
func (c *Context) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]interface{}, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Resolve replaces ${path} references in value. A string that is exactly one
// reference returns the referenced value with its native type; strings with
// embedded references substitute textually (null becomes empty). Maps and
// lists resolve recursively.
func (c *Context) Resolve(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		if m := fullReferencePattern.FindStringSubmatch(v); m != nil {
			return c.resolvePath(m[1])
		}
		return referencePattern.ReplaceAllStringFunc(v, func(ref string) string {
			path := ref[2 : len(ref)-1]
			resolved := c.resolvePath(path)
			if resolved == nil {
				return ""
			}
			return stringify(resolved)
		})
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = c.Resolve(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = c.Resolve(item)
		}
		return out
	}
	return value
}

// ResolveString resolves a value and renders it as a string
func (c *Context) ResolveString(value string) string {
	resolved := c.Resolve(value)
	if resolved == nil {
		return ""
	}
	return stringify(resolved)
}

// resolvePath walks a dotted path with optional [idx] list access. Any
// failed step yields nil.
func (c *Context) resolvePath(path string) interface{} {
	segments := strings.Split(strings.TrimSpace(path), ".")
	if len(segments) == 0 {
		return nil
	}

	var current interface{}
	c.mu.RLock()
	values := c.values
	c.mu.RUnlock()

	for i, segment := range segments {
		m := indexPattern.FindStringSubmatch(segment)
		if m == nil {
			return nil
		}
		name := m[1]

		if i == 0 {
			var ok bool
			current, ok = values[name]
			if !ok {
				return nil
			}
		} else {
			mapping, ok := current.(map[string]interface{})
			if !ok {
				return nil
			}
			current, ok = mapping[name]
			if !ok {
				return nil
			}
		}

		for _, idxMatch := range indexDigitsPattern.FindAllStringSubmatch(m[2], -1) {
			list, ok := current.([]interface{})
			if !ok {
				return nil
			}
			idx, err := strconv.Atoi(idxMatch[1])
			if err != nil || idx < 0 || idx >= len(list) {
				return nil
			}
			current = list[idx]
		}
	}
	return current
}

// EvaluateCondition evaluates "<lhs> <op> <rhs>" against the context. The
// left side is a path; the right side is a reference, literal or bare token.
// Malformed conditions and type mismatches evaluate false.
func (c *Context) EvaluateCondition(condition string) bool {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return false
	}

	for _, op := range conditionOperators {
		idx := strings.Index(condition, op)
		if idx < 0 {
			continue
		}
		lhsExpr := strings.TrimSpace(condition[:idx])
		rhsExpr := strings.TrimSpace(condition[idx+len(op):])
		if lhsExpr == "" || rhsExpr == "" {
			return false
		}

		lhs := c.resolveOperand(lhsExpr)
		rhs := c.parseLiteral(rhsExpr)

		switch strings.TrimSpace(op) {
		case "==":
			return valuesEqual(lhs, rhs)
		case "!=":
			return !valuesEqual(lhs, rhs)
		case ">=":
			return compareValues(lhs, rhs, func(cmp int) bool { return cmp >= 0 })
		case "<=":
			return compareValues(lhs, rhs, func(cmp int) bool { return cmp <= 0 })
		case ">":
			return compareValues(lhs, rhs, func(cmp int) bool { return cmp > 0 })
		case "<":
			return compareValues(lhs, rhs, func(cmp int) bool { return cmp < 0 })
		case "contains":
			return containsValue(lhs, rhs)
		}
	}
	return false
}

// resolveOperand resolves the left side of a condition: a ${path} reference
// or a bare path
func (c *Context) resolveOperand(expr string) interface{} {
	if m := fullReferencePattern.FindStringSubmatch(expr); m != nil {
		return c.resolvePath(m[1])
	}
	return c.resolvePath(expr)
}

// parseLiteral interprets the right side of a condition
func (c *Context) parseLiteral(expr string) interface{} {
	if m := fullReferencePattern.FindStringSubmatch(expr); m != nil {
		return c.resolvePath(m[1])
	}
	if len(expr) >= 2 {
		if (expr[0] == '"' && expr[len(expr)-1] == '"') || (expr[0] == '\'' && expr[len(expr)-1] == '\'') {
			return expr[1 : len(expr)-1]
		}
	}
	switch strings.ToLower(expr) {
	case "true":
		return true
	case "false":
		return false
	case "null", "none":
		return nil
	}
	if i, err := strconv.ParseInt(expr, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(expr, 64); err == nil {
		return f
	}
	return expr
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	// A number never equals a string, even when the digits match
	if aok != bok {
		return false
	}
	return stringify(a) == stringify(b)
}

func compareValues(a, b interface{}, accept func(cmp int) bool) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		if !bok {
			return false
		}
		switch {
		case af < bf:
			return accept(-1)
		case af > bf:
			return accept(1)
		}
		return accept(0)
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return false
	}
	return accept(strings.Compare(as, bs))
}

func containsValue(haystack, needle interface{}) bool {
	switch h := haystack.(type) {
	case string:
		return strings.Contains(h, stringify(needle))
	case []interface{}:
		for _, item := range h {
			if valuesEqual(item, needle) {
				return true
			}
		}
	case []string:
		target := stringify(needle)
		for _, item := range h {
			if item == target {
				return true
			}
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
