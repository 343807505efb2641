package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() *Context {
	return NewContext(map[string]interface{}{
		"target": "example.com",
		"count":  15,
		"node_scan_result": map[string]interface{}{
			"status":    "completed",
			"exit_code": 0,
			"hosts":     []interface{}{"10.0.0.1", "10.0.0.2"},
		},
		"tags": []interface{}{"web", "external"},
	})
}

func TestContext_Resolve(t *testing.T) {
	ctx := newTestContext()

	t.Run("full reference keeps native type", func(t *testing.T) {
		assert.Equal(t, 15, ctx.Resolve("${count}"))
		assert.Equal(t, "example.com", ctx.Resolve("${target}"))
	})

	t.Run("dotted path", func(t *testing.T) {
		assert.Equal(t, "completed", ctx.Resolve("${node_scan_result.status}"))
		assert.Equal(t, 0, ctx.Resolve("${node_scan_result.exit_code}"))
	})

	t.Run("list index", func(t *testing.T) {
		assert.Equal(t, "10.0.0.2", ctx.Resolve("${node_scan_result.hosts[1]}"))
		assert.Equal(t, "web", ctx.Resolve("${tags[0]}"))
	})

	t.Run("embedded references substitute as text", func(t *testing.T) {
		assert.Equal(t, "scan example.com depth 15", ctx.Resolve("scan ${target} depth ${count}"))
	})

	t.Run("unknown reference", func(t *testing.T) {
		assert.Nil(t, ctx.Resolve("${missing.path}"))
		assert.Equal(t, "value: ", ctx.Resolve("value: ${missing}"))
	})

	t.Run("out of range index", func(t *testing.T) {
		assert.Nil(t, ctx.Resolve("${tags[9]}"))
	})

	t.Run("maps and lists resolve recursively", func(t *testing.T) {
		resolved := ctx.Resolve(map[string]interface{}{
			"host":  "${target}",
			"ports": []interface{}{"${count}", "static"},
		})
		m, ok := resolved.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "example.com", m["host"])
		list, ok := m["ports"].([]interface{})
		require.True(t, ok)
		assert.Equal(t, 15, list[0])
		assert.Equal(t, "static", list[1])
	})

	t.Run("non-string passthrough", func(t *testing.T) {
		assert.Equal(t, 42, ctx.Resolve(42))
		assert.Equal(t, true, ctx.Resolve(true))
	})
}

func TestContext_EvaluateCondition(t *testing.T) {
	ctx := newTestContext()

	cases := []struct {
		condition string
		expect    bool
	}{
		{"node_scan_result.status == completed", true},
		{"node_scan_result.status == failed", false},
		{"node_scan_result.status != failed", true},
		{"count > 10", true},
		{"count > 20", false},
		{"count >= 15", true},
		{"count <= 14", false},
		{"count < 100", true},
		{"${node_scan_result.exit_code} == 0", true},
		{"count == 15", true},
		// A quoted literal stays a string and never equals a number
		{"count == '15'", false},
		{"count != '15'", true},
		{"target == \"example.com\"", true},
		{"target == 'example.com'", true},
		{"target contains example", true},
		{"target contains nothing-here", false},
		{"tags contains web", true},
		{"tags contains internal", false},
		{"missing == null", true},
		{"missing != null", false},
		{"", false},
		{"no operator here", false},
		{"count >", false},
	}

	for _, tc := range cases {
		t.Run(tc.condition, func(t *testing.T) {
			assert.Equal(t, tc.expect, ctx.EvaluateCondition(tc.condition), tc.condition)
		})
	}
}

func TestContext_SnapshotIsolation(t *testing.T) {
	ctx := NewContext(map[string]interface{}{"a": 1})
	snap := ctx.Snapshot()
	snap["a"] = 99
	snap["b"] = "new"

	assert.Equal(t, 1, ctx.Get("a"))
	assert.Nil(t, ctx.Get("b"))
}
