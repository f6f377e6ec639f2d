package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shipbot/internal/journal"
)

func sampleTrace() []TraceEvent {
	r := NewResult()
	r.addCall(0, "subscribe", map[string]any{"stream": "invite-store/updates"}, "ok")
	r.addCall(1, "poke", map[string]any{"app": "group-view", "resource": "~bus/g"}, "ok")
	r.addCall(1, "ack", map[string]any{"stream": "invite-store/updates", "frame_id": uint64(4)}, "ok")
	r.addCall(1, "join", map[string]any{"resource": "~bus/c"}, "failed")
	return r.Trace
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Action: "poke", Args: map[string]any{"app": "group-view"}}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Action: "ack", Args: map[string]any{"frame_id": 4}}))

	err := assertTraceContains(trace, Assertion{Action: "poke", Args: map[string]any{"app": "hood"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in trace")
	assert.Contains(t, err.Error(), "Full trace:")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{"subscribe", "poke", "ack"}}))

	err := assertTraceOrder(trace, Assertion{Actions: []string{"ack", "poke"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(trace, Assertion{Actions: []string{"post"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing action: post")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Action: "join", Count: 1}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Action: "post", Count: 0}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Action: "join", Args: map[string]any{"resource": "~bus/x"}, Count: 0}))
	assert.Error(t, assertTraceCount(trace, Assertion{Action: "join", Count: 2}))
}

func TestAssertTraceCount_IgnoresReports(t *testing.T) {
	r := NewResult()
	r.Trace = append(r.Trace, TraceEvent{Type: EventReport, Action: "post"})

	assert.NoError(t, assertTraceCount(r.Trace, Assertion{Action: "post", Count: 0}))
}

func TestAssertJournalCount(t *testing.T) {
	entries := []journal.Entry{
		{Kind: journal.KindJoin, Resource: "~bus/a", Outcome: journal.OutcomeOK, FrameID: 2},
		{Kind: journal.KindJoin, Resource: "~bus/a", Outcome: journal.OutcomeFailed, FrameID: 3},
		{Kind: journal.KindAck, Outcome: journal.OutcomeOK, FrameID: 3},
	}

	assert.NoError(t, assertJournalCount(entries, Assertion{Where: map[string]any{"kind": "join"}, Count: 2}))
	assert.NoError(t, assertJournalCount(entries, Assertion{Where: map[string]any{"frame_id": 3}, Count: 2}))
	assert.NoError(t, assertJournalCount(entries, Assertion{Count: 3}))

	err := assertJournalCount(entries, Assertion{Where: map[string]any{"kind": "post"}, Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind=post")
}

func TestEvaluateAssertions_CollectsAllFailures(t *testing.T) {
	r := NewResult()
	r.Trace = sampleTrace()

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertTraceCount, Action: "post", Count: 1},
		{Type: AssertTraceContains, Action: "poke"},
		{Type: "bogus"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[1], "unknown assertion type")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
