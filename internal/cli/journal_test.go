package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shipbot/internal/journal"
)

// seedJournal writes a journal with two cycles of effects.
func seedJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shipbot.db")
	j, err := journal.Open(context.Background(), path)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	entries := []journal.Entry{
		{Cycle: "cycle-1", CycleSeq: 1, Kind: journal.KindInviteAccept, Resource: "~bus/group-1", FrameID: 1, Outcome: journal.OutcomeOK},
		{Cycle: "cycle-1", CycleSeq: 1, Kind: journal.KindAck, FrameID: 1, Outcome: journal.OutcomeOK},
		{Cycle: "cycle-2", CycleSeq: 2, Kind: journal.KindJoin, Resource: "~bus/chat-a", FrameID: 2, Outcome: journal.OutcomeFailed, Error: "thread crashed"},
		{Cycle: "cycle-2", CycleSeq: 2, Kind: journal.KindPost, Resource: "~bus/chat-1", FrameID: 3, Outcome: journal.OutcomeOK},
	}
	for _, e := range entries {
		_, err := j.Record(ctx, e)
		require.NoError(t, err)
	}
	return path
}

func executeJournal(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewJournalCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestJournalListText(t *testing.T) {
	db := seedJournal(t)

	out, err := executeJournal(t, &RootOptions{Format: "text"}, "--db", db)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "SEQ"))
	assert.Contains(t, lines[1], "invite_accept")
	assert.Contains(t, lines[3], "thread crashed")
	assert.Contains(t, lines[4], "~bus/chat-1")
}

func TestJournalListJSONWithFilters(t *testing.T) {
	db := seedJournal(t)

	tests := []struct {
		name      string
		args      []string
		wantKinds []journal.Kind
	}{
		{"all", nil, []journal.Kind{journal.KindInviteAccept, journal.KindAck, journal.KindJoin, journal.KindPost}},
		{"by_cycle", []string{"--cycle", "cycle-2"}, []journal.Kind{journal.KindJoin, journal.KindPost}},
		{"by_kind", []string{"--kind", "ack"}, []journal.Kind{journal.KindAck}},
		{"limit_keeps_newest", []string{"--limit", "1"}, []journal.Kind{journal.KindPost}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--db", db}, tt.args...)
			out, err := executeJournal(t, &RootOptions{Format: "json"}, args...)
			require.NoError(t, err)

			var resp struct {
				Status string          `json:"status"`
				Data   []journal.Entry `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "ok", resp.Status)

			kinds := make([]journal.Kind, 0, len(resp.Data))
			for _, e := range resp.Data {
				kinds = append(kinds, e.Kind)
			}
			assert.Equal(t, tt.wantKinds, kinds)
		})
	}
}

func TestJournalStats(t *testing.T) {
	db := seedJournal(t)

	out, err := executeJournal(t, &RootOptions{Format: "json"}, "--db", db, "--stats")
	require.NoError(t, err)

	var resp struct {
		Data []journal.Stat `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []journal.Stat{
		{Kind: journal.KindAck, Outcome: journal.OutcomeOK, Count: 1},
		{Kind: journal.KindInviteAccept, Outcome: journal.OutcomeOK, Count: 1},
		{Kind: journal.KindJoin, Outcome: journal.OutcomeFailed, Count: 1},
		{Kind: journal.KindPost, Outcome: journal.OutcomeOK, Count: 1},
	}, resp.Data)

	out, err = executeJournal(t, &RootOptions{Format: "text"}, "--db", db, "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "failed")
}

func TestJournalEmpty(t *testing.T) {
	db := seedJournal(t)

	out, err := executeJournal(t, &RootOptions{Format: "text"}, "--db", db, "--cycle", "cycle-9")
	require.NoError(t, err)
	assert.Contains(t, out, "No journal entries found.")
}

func TestJournalPathFromConfig(t *testing.T) {
	db := seedJournal(t)
	cfgPath := filepath.Join(t.TempDir(), "ship_config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("ship_code: x\njournal: "+db+"\n"), 0o600))

	out, err := executeJournal(t, &RootOptions{Format: "text", Config: cfgPath}, "--kind", "post")
	require.NoError(t, err)
	assert.Contains(t, out, "~bus/chat-1")
}

func TestJournalErrors(t *testing.T) {
	db := seedJournal(t)
	noJournal := filepath.Join(t.TempDir(), "ship_config.yaml")
	require.NoError(t, os.WriteFile(noJournal, []byte("ship_code: x\n"), 0o600))

	tests := []struct {
		name    string
		opts    *RootOptions
		args    []string
		wantErr string
	}{
		{"bad_kind", &RootOptions{Format: "text"}, []string{"--db", db, "--kind", "poke"}, "invalid kind"},
		{"negative_limit", &RootOptions{Format: "text"}, []string{"--db", db, "--limit", "-1"}, "--limit must be non-negative"},
		{"missing_db", &RootOptions{Format: "text"}, []string{"--db", filepath.Join(t.TempDir(), "none.db")}, "journal not found"},
		{"no_config", &RootOptions{Format: "text", Config: filepath.Join(t.TempDir(), "none.yaml")}, nil, "config could not be loaded"},
		{"config_without_journal", &RootOptions{Format: "text", Config: noJournal}, nil, "no journal configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeJournal(t, tt.opts, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}
