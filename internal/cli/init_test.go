package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shipbot/internal/config"
)

func executeInit(t *testing.T, opts *RootOptions) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewInitCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	return buf.String(), err
}

func TestInitWritesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ship_config.yaml")

	out, err := executeInit(t, &RootOptions{Format: "text", Config: path})
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "localhost:8080")
	assert.Contains(t, string(data), `ship_code: ""`)

	// The template has an empty code, so it does not validate until filled in.
	_, err = config.Load(path)
	require.Error(t, err)
	assert.True(t, config.IsCode(err, config.ErrCodeInvalid))
}

func TestInitJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zod.yaml")

	out, err := executeInit(t, &RootOptions{Format: "json", Config: path})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"path": path}, resp.Data)
}

func TestInitRefusesToOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ship_config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ship_code: keep-me\n"), 0o600))

	_, err := executeInit(t, &RootOptions{Format: "text", Config: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config not written")
	assert.True(t, config.IsCode(err, config.ErrCodeExists))
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ship_code: keep-me\n", string(data))
}
