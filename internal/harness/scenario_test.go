package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shipbot/internal/transport"
)

const validScenario = `
name: valid
description: "a valid scenario"
ship: "~bridge"
cycles:
  - frames:
      - stream: graph
        raw: "x"
assertions:
  - type: trace_count
    action: post
    count: 0
`

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(validScenario))
	require.NoError(t, err)
	assert.Equal(t, "valid", s.Name)
	assert.Equal(t, "~bridge", s.Ship)
	require.Len(t, s.Cycles, 1)
	assert.Equal(t, "x", s.Cycles[0].Frames[0].Raw)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "valid", s.Name)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "unknown field",
			src:     validScenario + "assertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name: "missing name",
			src: `
description: d
ship: "~bridge"
cycles: [{frames: []}]
assertions: [{type: trace_count, action: post}]
`,
			wantErr: "name is required",
		},
		{
			name: "bad ship",
			src: `
name: n
description: d
ship: "~"
cycles: [{frames: []}]
assertions: [{type: trace_count, action: post}]
`,
			wantErr: "ship",
		},
		{
			name: "no cycles",
			src: `
name: n
description: d
ship: "~bridge"
assertions: [{type: trace_count, action: post}]
`,
			wantErr: "cycles list is required",
		},
		{
			name: "frame with both payloads",
			src: `
name: n
description: d
ship: "~bridge"
cycles:
  - frames:
      - stream: graph
        raw: "x"
        json: {a: 1}
assertions: [{type: trace_count, action: post}]
`,
			wantErr: "exactly one of json and raw",
		},
		{
			name: "unknown stream",
			src: `
name: n
description: d
ship: "~bridge"
cycles:
  - frames:
      - stream: chat
        raw: "x"
assertions: [{type: trace_count, action: post}]
`,
			wantErr: "unknown stream",
		},
		{
			name: "unknown report field",
			src: `
name: n
description: d
ship: "~bridge"
cycles:
  - frames: []
    expect: { replies: 1 }
assertions: [{type: trace_count, action: post}]
`,
			wantErr: "unknown report field",
		},
		{
			name: "unknown failure op",
			src: `
name: n
description: d
ship: "~bridge"
failures: [{op: explode, error: boom}]
cycles: [{frames: []}]
assertions: [{type: trace_count, action: post}]
`,
			wantErr: "unknown op",
		},
		{
			name: "unknown assertion type",
			src: `
name: n
description: d
ship: "~bridge"
cycles: [{frames: []}]
assertions: [{type: final_state}]
`,
			wantErr: "unknown assertion type",
		},
		{
			name: "trace_order without actions",
			src: `
name: n
description: d
ship: "~bridge"
cycles: [{frames: []}]
assertions: [{type: trace_order}]
`,
			wantErr: "actions list is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseStream(t *testing.T) {
	s, err := ParseStream("invite")
	require.NoError(t, err)
	assert.Equal(t, transport.InviteUpdates, s)

	s, err = ParseStream("metadata-store/all")
	require.NoError(t, err)
	assert.Equal(t, transport.MetadataAll, s)

	_, err = ParseStream("graph-store")
	assert.Error(t, err)
}

func TestFrameData_KeepsKeyOrder(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: n
description: d
ship: "~bridge"
cycles:
  - frames:
      - stream: metadata
        json:
          zeta: 1
          alpha: [true, null, 1.5, "~zod", 0x10]
          mid: { b: "x", a: ~ }
assertions: [{type: trace_count, action: post}]
`))
	require.NoError(t, err)

	data, err := s.Cycles[0].Frames[0].frameData()
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":[true,null,1.5,"~zod",16],"mid":{"b":"x","a":null}}`, data)
}
