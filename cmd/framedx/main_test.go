package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frame-dx-server/internal/domain"
	"github.com/frame-dx-server/internal/setup"
)

const clinicFrames = `
root: Disease
frames:
  - id: Disease
  - id: flu
    parent: Disease
    findings: {fever: 2, cough: 1, fatigue: 1}
    rules: {must_have: [fever]}
  - id: measles
    parent: Disease
    findings: {rash: 3, fever: 2, koplik spots: 4}
    rules: {must_not_have: [immunized]}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("FRAMEDX_FRAMES_FILE", "")
	t.Setenv("FRAMEDX_LOG_LEVEL", "error")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFrames(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frames.yaml")
	require.NoError(t, os.WriteFile(path, []byte(clinicFrames), 0o600))
	return path
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", writeFrames(t))
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 3 frames, 2 diseases, 6 symptoms (root Disease")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("root: Disease\nframes:\n  - id: orphan\n    parent: Nowhere\n"), 0o600))
	_, err = execute(t, "validate", bad)
	assert.ErrorIs(t, err, domain.ErrInvalidFrameGraph)

	_, err = execute(t, "validate")
	assert.Error(t, err, "a file argument is required")
}

func TestSymptoms(t *testing.T) {
	out, err := execute(t, "symptoms", "--frames", writeFrames(t))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{"cough", "fatigue", "fever", "immunized", "koplik spots", "rash"}, lines)

	out, err = execute(t, "symptoms", "--json")
	require.NoError(t, err)
	var vocabulary []string
	require.NoError(t, json.Unmarshal([]byte(out), &vocabulary))
	assert.Contains(t, vocabulary, "high_fever")
}

func TestDiagnose(t *testing.T) {
	frames := writeFrames(t)

	out, err := execute(t, "diagnose", "--frames", frames, "--json", "fever", "rash", "immunized")
	require.NoError(t, err)
	var resp domain.DiagnoseResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []domain.RankedResult{{Disease: "flu", Score: 2}}, resp.Ranked)
	assert.Equal(t, []string{"immunized"}, resp.Details["measles"].ForbiddenPresent)

	out, err = execute(t, "diagnose", "--frames", frames, "rash", "Koplik  Spots")
	require.NoError(t, err)
	assert.Contains(t, out, "measles")
	assert.Contains(t, out, "koplik spots, rash")
	assert.Contains(t, out, "excluded flu: missing fever")

	_, err = execute(t, "diagnose", "--limit=-1", "fever")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestSetup(t *testing.T) {
	t.Setenv("FRAMEDX_DATA_DIR", filepath.Join(t.TempDir(), "data"))
	clientConfig := filepath.Join(t.TempDir(), "client.json")
	frames := writeFrames(t)

	out, err := execute(t, "setup", "--config", clientConfig, "--binary", "/opt/framedx/framedx", "--frames", frames)
	require.NoError(t, err)
	assert.Contains(t, out, "registered framedx")

	cfg, err := setup.Load(clientConfig)
	require.NoError(t, err)
	entry := cfg.MCPServers[setup.ServerName]
	assert.Equal(t, "/opt/framedx/framedx", entry.Command)
	assert.Equal(t, []string{"mcp"}, entry.Args)
	assert.Equal(t, frames, entry.Env["FRAMEDX_FRAMES_FILE"])

	out, err = execute(t, "setup", "--config", clientConfig, "--binary", "/opt/framedx/framedx")
	require.NoError(t, err)
	assert.Contains(t, out, "updated framedx")

	out, err = execute(t, "setup", "--config", clientConfig, "--remove")
	require.NoError(t, err)
	assert.Contains(t, out, "removed framedx")
}
