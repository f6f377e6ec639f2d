package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ship_config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
ship_url: http://localhost:8080
ship_code: lidlut-tabwed-pillex-ridrup
poll_interval: 2s
journal: /tmp/shipbot.db
log_level: debug
responder: echo
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.ShipURL)
	assert.Equal(t, "lidlut-tabwed-pillex-ridrup", cfg.ShipCode)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, "/tmp/shipbot.db", cfg.Journal)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "echo", cfg.Responder)
}

func TestLoad_DefaultsFillUnsetFields(t *testing.T) {
	path := writeConfig(t, "ship_code: lidlut-tabwed-pillex-ridrup\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().ShipURL, cfg.ShipURL)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "chart", cfg.Responder)
	assert.Empty(t, cfg.Journal)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "ship_url: http://localhost:8080\nship_code: from-file\n")
	t.Setenv("SHIPBOT_SHIP_URL", "https://zod.arvo.network")
	t.Setenv("SHIPBOT_SHIP_CODE", "from-env")
	t.Setenv("SHIPBOT_POLL_INTERVAL", "250ms")
	t.Setenv("SHIPBOT_RESPONDER", "none")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://zod.arvo.network", cfg.ShipURL)
	assert.Equal(t, "from-env", cfg.ShipCode)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "none", cfg.Responder)
}

func TestLoad_BadEnvValue(t *testing.T) {
	path := writeConfig(t, "ship_code: x\n")
	t.Setenv("SHIPBOT_POLL_INTERVAL", "soon")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeEnv))
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "shipbot init")
}

func TestLoad_UnknownField(t *testing.T) {
	path := writeConfig(t, "ship_code: x\nshipcode: typo\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeParse))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"empty code", "ship_code: \"\"\n", "ship_code"},
		{"bad scheme", "ship_url: ftp://zod\nship_code: x\n", "ship_url"},
		{"interval too short", "ship_code: x\npoll_interval: 10ms\n", "poll_interval"},
		{"interval too long", "ship_code: x\npoll_interval: 1m\n", "poll_interval"},
		{"unknown level", "ship_code: x\nlog_level: loud\n", "log_level"},
		{"unknown responder", "ship_code: x\nresponder: oracle\n", "responder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, IsCode(err, ErrCodeInvalid), "got %v", err)
			assert.Contains(t, err.Error(), tt.field)
			assert.Contains(t, err.Error(), path)
		})
	}
}

func TestValidate_Default(t *testing.T) {
	err := Validate(Default())
	require.Error(t, err, "default config has no ship code")
	assert.Contains(t, err.Error(), "ship_code")

	cfg := Default()
	cfg.ShipCode = "lidlut-tabwed-pillex-ridrup"
	assert.NoError(t, Validate(cfg))
}

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, Config{LogLevel: "warn"}.Level())
	assert.Equal(t, slog.LevelError, Config{LogLevel: "ERROR"}.Level())
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: "bogus"}.Level())
}

func TestRedacted(t *testing.T) {
	cfg := Config{ShipCode: "secret"}
	assert.Equal(t, "<redacted>", cfg.Redacted().ShipCode)
	assert.Equal(t, "secret", cfg.ShipCode)
	assert.Empty(t, Config{}.Redacted().ShipCode)
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ship_config.yaml")
	require.NoError(t, WriteTemplate(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# +code of the ship")
	assert.Contains(t, text, "poll_interval: 500ms")
	assert.Contains(t, text, `ship_code: ""`)

	// The template parses but still needs a ship code.
	_, err = Load(path)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeInvalid))

	err = WriteTemplate(path)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeExists))
}
