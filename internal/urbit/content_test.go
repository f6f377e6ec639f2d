package urbit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContents_UnmarshalWireItems(t *testing.T) {
	raw := `[
		{"text": "c ethusd"},
		{"url": "https://example.com"},
		{"mention": "~zod"},
		{"code": {"expression": "(add 1 1)", "output": [["2"]]}},
		{"reference": {"graph": {"graph": "/ship/~zod/x", "index": "/1"}}}
	]`
	var cs Contents
	require.NoError(t, json.Unmarshal([]byte(raw), &cs))
	require.Len(t, cs, 5)

	assert.Equal(t, Text("c ethusd"), cs[0])
	assert.Equal(t, ContentURL, cs[1].Kind)
	assert.Equal(t, "~zod", cs[2].Text)
	require.NotNil(t, cs[3].Code)
	assert.Equal(t, "(add 1 1)", cs[3].Code.Expression)
	assert.JSONEq(t, `[["2"]]`, string(cs[3].Code.Output))
	assert.Equal(t, ContentReference, cs[4].Kind)
	assert.Contains(t, string(cs[4].Raw), "/ship/~zod/x")
}

func TestContent_UnmarshalRejectsUnknown(t *testing.T) {
	var c Content
	assert.Error(t, json.Unmarshal([]byte(`{"sticker": "x"}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"text": "a", "url": "b"}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"text": 5}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`"text"`), &c))
}

func TestContent_MarshalRoundTripShape(t *testing.T) {
	msg := NewMessage().AddText("hi").AddMention("zod").AddCode("now")
	b, err := json.Marshal(msg.Contents)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"text":"hi"},{"mention":"~zod"},{"code":{"expression":"now","output":[]}}]`, string(b))

	_, err = json.Marshal(Content{Kind: "bogus"})
	assert.Error(t, err)
}

func TestContents_FormattedString(t *testing.T) {
	cs := Contents{
		Text("see"),
		URL("https://example.com"),
		Mention("nec"),
		{Kind: ContentReference, Raw: json.RawMessage(`{}`)},
		{Kind: ContentCode, Code: &Code{Expression: "(add 2 2)"}},
	}
	assert.Equal(t, "see https://example.com ~nec (add 2 2)", cs.FormattedString())
	assert.Equal(t, []string{"see", "https://example.com", "~nec", "(add", "2", "2)"}, cs.Words())
}

func TestContents_NormalizeNFC(t *testing.T) {
	decomposed := "cafe\u0301"
	cs := Contents{Text(decomposed)}
	got := cs.NormalizeNFC()

	assert.Equal(t, "caf\u00e9", got[0].Text)
	assert.Equal(t, decomposed, cs[0].Text, "original must not be mutated")
	assert.Nil(t, Contents(nil).NormalizeNFC())
}

func TestMessage_BuilderDoesNotAlias(t *testing.T) {
	base := NewMessage().AddText("a")
	left := base.AddText("b")
	right := base.AddText("c")

	assert.True(t, NewMessage().IsEmpty())
	assert.Equal(t, "ab", left.Contents.FormattedString())
	assert.Equal(t, "ac", right.Contents.FormattedString())
	assert.Len(t, base.Contents, 1)
}
