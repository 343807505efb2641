package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/models"
)

func TestRegistry_GetAndList(t *testing.T) {
	registry := NewRegistry(arbor.NewLogger())

	def, ok := registry.Get("nmap")
	require.True(t, ok)
	assert.Equal(t, "nmap", def.Slug)
	assert.NotEmpty(t, def.CommandTemplate)

	_, ok = registry.Get("does-not-exist")
	assert.False(t, ok)

	all := registry.List()
	assert.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Slug, all[i].Slug, "list must be sorted by slug")
	}

	recon := registry.ListByCategory(models.CategoryReconnaissance)
	assert.NotEmpty(t, recon)
	for _, def := range recon {
		assert.Equal(t, models.CategoryReconnaissance, def.Category)
	}
}

func TestRegistry_RenderCommand(t *testing.T) {
	registry := NewRegistry(arbor.NewLogger())

	t.Run("defaults fill optional placeholders", func(t *testing.T) {
		cmd, err := registry.RenderCommand("nmap", map[string]interface{}{
			"target": "10.0.0.5",
		})
		require.NoError(t, err)
		assert.Equal(t, "nmap 10.0.0.5 -p 1-1000 -sV -T4 -oX -", cmd)
	})

	t.Run("explicit params override defaults", func(t *testing.T) {
		cmd, err := registry.RenderCommand("nmap", map[string]interface{}{
			"target": "10.0.0.5",
			"ports":  "-p 22,80",
			"timing": "-T2",
		})
		require.NoError(t, err)
		assert.Equal(t, "nmap 10.0.0.5 -p 22,80 -sV -T2 -oX -", cmd)
	})

	t.Run("empty placeholders collapse whitespace", func(t *testing.T) {
		cmd, err := registry.RenderCommand("subfinder", map[string]interface{}{
			"domain": "example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "subfinder -d example.com -silent", cmd)
	})

	t.Run("json numbers render without decimals", func(t *testing.T) {
		cmd, err := registry.RenderCommand("masscan", map[string]interface{}{
			"target": "10.0.0.0/24",
			"rate":   float64(5000),
		})
		require.NoError(t, err)
		assert.Contains(t, cmd, "--rate 5000")
		assert.NotContains(t, cmd, "5000.")
	})

	t.Run("missing required parameter", func(t *testing.T) {
		_, err := registry.RenderCommand("nmap", map[string]interface{}{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing required parameter")

		_, err = registry.RenderCommand("nmap", map[string]interface{}{"target": ""})
		require.Error(t, err)
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := registry.RenderCommand("ghost-tool", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown tool")
	})
}
