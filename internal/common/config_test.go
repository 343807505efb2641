package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFiles_Defaults(t *testing.T) {
	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 4, cfg.Queue.MaxWorkers)
	assert.Equal(t, 5, cfg.Workflow.MaxParallel)
	assert.Equal(t, 3600, cfg.Runner.DefaultTimeout)
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	base := writeConfigFile(t, "base.toml", `
[server]
port = 9000
host = "0.0.0.0"

[queue]
max_workers = 8
`)
	override := writeConfigFile(t, "override.toml", `
[server]
port = 9100
`)

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8, cfg.Queue.MaxWorkers)
}

func TestLoadFromFiles_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFromFiles("/no/such/file.toml")
		require.Error(t, err)
	})

	t.Run("invalid toml", func(t *testing.T) {
		path := writeConfigFile(t, "broken.toml", "[server\nport=")
		_, err := LoadFromFiles(path)
		require.Error(t, err)
	})

	t.Run("validation failure", func(t *testing.T) {
		path := writeConfigFile(t, "invalid.toml", `
[queue]
max_workers = 0
`)
		_, err := LoadFromFiles(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("VENATOR_ENCRYPTION_KEY", "env-key")
	t.Setenv("VENATOR_WEBHOOK_URL", "https://hooks.example.com/x")

	path := writeConfigFile(t, "cfg.toml", `
[encryption]
keys = "file-key"
`)
	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Encryption.Keys)
	assert.Equal(t, "https://hooks.example.com/x", cfg.Notify.WebhookURL)
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := DefaultConfig()

	ApplyFlagOverrides(cfg, 0, "")
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)

	ApplyFlagOverrides(cfg, 7777, "127.0.0.1")
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("proj", "title", "template", "asset")
	b := Fingerprint("proj", "title", "template", "asset")
	c := Fingerprint("proj", "title", "template", "other")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}

func TestCanonicalJSON(t *testing.T) {
	a := CanonicalJSON(map[string]interface{}{"b": 2, "a": 1})
	b := CanonicalJSON(map[string]interface{}{"a": 1, "b": 2})

	assert.Equal(t, a, b)
	assert.Equal(t, `{"a":1,"b":2}`, a)
	assert.Equal(t, "{}", CanonicalJSON(nil))
}
