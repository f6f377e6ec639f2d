package eyre

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEScanner_Events(t *testing.T) {
	input := ": keepalive\n" +
		"id: 0\n" +
		"data: {\"id\":1,\"response\":\"subscribe\",\"ok\":\"ok\"}\n" +
		"\n" +
		"id: 1\r\n" +
		"event: message\r\n" +
		"data: {\"a\":\r\n" +
		"data: 1}\r\n" +
		"\r\n" +
		"id: 2\n" +
		"data: tail"

	s := newSSEScanner(strings.NewReader(input))

	require.True(t, s.Next())
	assert.Equal(t, uint64(0), s.Event().ID)
	assert.True(t, s.Event().HasID, "id 0 is still an id")
	assert.Equal(t, `{"id":1,"response":"subscribe","ok":"ok"}`, s.Event().Data)

	require.True(t, s.Next())
	assert.Equal(t, uint64(1), s.Event().ID)
	assert.Equal(t, "message", s.Event().Type)
	assert.Equal(t, "{\"a\":\n1}", s.Event().Data)

	require.True(t, s.Next(), "event without trailing blank line is flushed at EOF")
	assert.Equal(t, uint64(2), s.Event().ID)
	assert.Equal(t, "tail", s.Event().Data)

	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
}

func TestSSEScanner_IgnoresEventsWithoutData(t *testing.T) {
	s := newSSEScanner(strings.NewReader("id: 5\n\nid: 6\ndata: x\n\n"))

	require.True(t, s.Next())
	assert.Equal(t, uint64(6), s.Event().ID)
	assert.Equal(t, "x", s.Event().Data)
	assert.False(t, s.Next())
}

func TestSSEScanner_EventWithoutID(t *testing.T) {
	s := newSSEScanner(strings.NewReader("data: x\n\nid: nope\ndata: y\n\n"))

	require.True(t, s.Next())
	assert.False(t, s.Event().HasID)

	require.True(t, s.Next())
	assert.False(t, s.Event().HasID, "unparseable ids are ignored")
	assert.Equal(t, "y", s.Event().Data)
}
