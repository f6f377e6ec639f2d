package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shipbot/internal/decode"
	"github.com/roach88/shipbot/internal/transport"
	"github.com/roach88/shipbot/internal/urbit"
)

const frameFile = `{"id": 7, "stream": "invite", "json": {"invite-update": {"invite": {"term": "groups", "uid": "0v1.abc", "invite": {"ship": "~bus", "app": "group-push-hook", "resource": {"ship": "~bus", "name": "group-1"}, "recipient": "~zod", "text": "hi"}}}}}

{"id": 8, "stream": "metadata", "json": {"metadata-update": {"add": {"app-name": "graph", "resource": "/ship/~bus/chat-a", "group": "/ship/~bus/group-1", "metadata": {}}}}}
` + chartFrame + `
this is not json
`

func executeDecode(t *testing.T, format string, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewDecodeCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestDecodeJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(frameFile), 0644))

	out, err := executeDecode(t, "json", "", path)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   DecodeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 4, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Unrecognized)

	frames := resp.Data.Frames
	require.Len(t, frames, 4)

	assert.Equal(t, DecodedFrame{
		Line:   1,
		ID:     7,
		Stream: "invite-store/updates",
		Kind:   "invite",
		Detail: "invite to ~bus/group-1 from ~bus",
	}, frames[0])

	assert.Equal(t, 3, frames[1].Line)
	assert.Equal(t, uint64(8), frames[1].ID)
	assert.Equal(t, "metadata", frames[1].Kind)
	assert.Equal(t, "add graph ~bus/chat-a", frames[1].Detail)

	// Bare payloads get the line number and the default stream.
	assert.Equal(t, uint64(4), frames[2].ID)
	assert.Equal(t, "graph-store/updates", frames[2].Stream)
	assert.Equal(t, "graph", frames[2].Kind)
	assert.Contains(t, frames[2].Detail, `~bus/chat-1 /1 by ~nec: "c ethusd 1h" (1 nodes)`)
	assert.Empty(t, frames[2].IndexedAt, "/1 is not a date index")

	assert.Equal(t, "unrecognized", frames[3].Kind)
	assert.Equal(t, string(decode.ErrCodeMalformedJSON), frames[3].ErrorCode)
}

func TestDecodeTextFromStdin(t *testing.T) {
	out, err := executeDecode(t, "text", "this is not json\n[1, 2]\n", "-")
	require.NoError(t, err)

	assert.Contains(t, out, "LINE")
	assert.Contains(t, out, "MALFORMED_JSON")
	assert.Contains(t, out, "UNKNOWN_SHAPE")
	assert.Contains(t, out, "2 frames, 2 unrecognized")
}

func TestDecodeShowsIndexTime(t *testing.T) {
	sent := time.Date(2021, 6, 1, 12, 30, 45, 123_000_000, time.UTC)
	index := urbit.NodeIndex(sent)
	frame := `{"graph-update":{"add-nodes":{"resource":{"ship":"bus","name":"chat-1"},"nodes":{"` + index +
		`":{"post":{"author":"~nec","index":"` + index + `","time-sent":1622550645123,"contents":[{"text":"hi"}]},"children":null}}}}}`

	out, err := executeDecode(t, "json", frame+"\n", "-")
	require.NoError(t, err)

	var resp struct {
		Data DecodeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Frames, 1)
	assert.Equal(t, "graph", resp.Data.Frames[0].Kind)
	assert.Equal(t, "2021-06-01T12:30:45.123Z", resp.Data.Frames[0].IndexedAt)

	out, err = executeDecode(t, "text", frame+"\n", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "at 2021-06-01T12:30:45.123Z")
}

func TestDecodeStreamFlag(t *testing.T) {
	out, err := executeDecode(t, "json", `{"invite-update": {"invite": null}}`+"\n", "--stream", "invite", "-")
	require.NoError(t, err)

	var resp struct {
		Data DecodeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Frames, 1)
	assert.Equal(t, "invite-store/updates", resp.Data.Frames[0].Stream)
	assert.Equal(t, "not a new invite", resp.Data.Frames[0].Detail)
}

func TestDecodeErrors(t *testing.T) {
	t.Run("missing_file", func(t *testing.T) {
		_, err := executeDecode(t, "text", "", filepath.Join(t.TempDir(), "nope.jsonl"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open frames file")
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("bad_default_stream", func(t *testing.T) {
		_, err := executeDecode(t, "text", "", "--stream", "nowhere", "-")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid --stream")
	})

	t.Run("bad_envelope_stream", func(t *testing.T) {
		_, err := executeDecode(t, "text", `{"id": 1, "stream": "bogus", "json": {}}`+"\n", "-")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 1")
	})
}

func TestReadFramesCustomStream(t *testing.T) {
	frames, err := readFrames(strings.NewReader(`{"stream": "chat-store/updates", "json": {"x": 1}}`), transport.GraphUpdates)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, transport.Stream{App: "chat-store", Path: "/updates"}, frames[0].frame.Stream)
	assert.Equal(t, uint64(1), frames[0].frame.ID)
	assert.Equal(t, `{"x": 1}`, string(frames[0].frame.Data))
}
