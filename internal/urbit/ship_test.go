package urbit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShip(t *testing.T) {
	tests := []struct {
		in      string
		want    Ship
		wantErr bool
	}{
		{in: "zod", want: "zod"},
		{in: "~zod", want: "zod"},
		{in: " ~sampel-palnet ", want: "sampel-palnet"},
		{in: "", wantErr: true},
		{in: "~", wantErr: true},
		{in: "a b", wantErr: true},
		{in: "zod/chat", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseShip(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShip_StringAndEqual(t *testing.T) {
	s := MustParseShip("~zod")
	assert.Equal(t, "~zod", s.String())
	assert.Equal(t, "zod", s.Name())
	assert.True(t, s.Equal(Ship("~zod")), "sigil must not affect equality")
	assert.False(t, s.Equal(Ship("nec")))
	assert.Equal(t, "", Ship("").String())
	assert.True(t, Ship("~").IsZero())
}

func TestShip_JSONUsesSigil(t *testing.T) {
	b, err := json.Marshal(Resource{Ship: "zod", Name: "general"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ship":"~zod","name":"general"}`, string(b))

	var r Resource
	require.NoError(t, json.Unmarshal([]byte(`{"ship":"nec","name":"chat-1"}`), &r))
	assert.Equal(t, Resource{Ship: "nec", Name: "chat-1"}, r)
}

func TestParseResourcePath(t *testing.T) {
	r, err := ParseResourcePath("/ship/~peerY/chat-1")
	require.NoError(t, err)
	assert.Equal(t, Resource{Ship: "peerY", Name: "chat-1"}, r)
	assert.Equal(t, "/ship/~peerY/chat-1", r.Path())
	assert.Equal(t, "~peerY/chat-1", r.String())

	for _, bad := range []string{
		"",
		"ship/~zod/chat",
		"/ship/zod/chat",
		"/ship/~zod",
		"/ship/~zod/chat/extra",
		"/group/~zod/chat",
		"/ship/~zod/",
	} {
		_, err := ParseResourcePath(bad)
		assert.Error(t, err, "path %q should be rejected", bad)
	}
}

func TestResource_Comparable(t *testing.T) {
	a := Resource{Ship: "zod", Name: "general"}
	b, err := NewResource("~zod", "general")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	seen := map[Resource]int{a: 1}
	seen[b]++
	assert.Equal(t, 2, seen[a])
	assert.True(t, Resource{}.IsZero())
}
