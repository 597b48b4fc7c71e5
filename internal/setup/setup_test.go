package setup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestRegister_PreservesOtherSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{
  "theme": "dark",
  "mcpServers": {
    "notes": {"command": "/usr/bin/notes-mcp"}
  }
}`), 0o600))

	replaced, err := Register(path, Options{
		BinaryPath: "/opt/framedx/framedx",
		DataDir:    "/var/lib/framedx",
		NoFeedback: true,
	})
	require.NoError(t, err)
	assert.False(t, replaced)

	var raw map[string]json.RawMessage
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `"dark"`, string(raw["theme"]))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, cfg.MCPServers, "notes")
	assert.Equal(t, MCPServerConfig{
		Command: "/opt/framedx/framedx",
		Args:    []string{"mcp", "--no-feedback"},
		Env:     map[string]string{"FRAMEDX_DATA_DIR": "/var/lib/framedx"},
	}, cfg.MCPServers[ServerName])

	replaced, err = Register(path, Options{BinaryPath: "/opt/framedx/framedx"})
	require.NoError(t, err)
	assert.True(t, replaced)

	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"mcp"}, cfg.MCPServers[ServerName].Args)
	assert.Nil(t, cfg.MCPServers[ServerName].Env)
}

func TestUnregister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	removed, err := Unregister(path)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = Register(path, Options{BinaryPath: "/opt/framedx/framedx"})
	require.NoError(t, err)

	removed, err = Unregister(path)
	require.NoError(t, err)
	assert.True(t, removed)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NotContains(t, cfg.MCPServers, ServerName)
}

func TestEntry_RequiresBinary(t *testing.T) {
	_, err := Entry(Options{})
	assert.Error(t, err)
}
