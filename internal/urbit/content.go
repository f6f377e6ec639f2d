package urbit

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ContentKind identifies the variant of a Content item.
type ContentKind string

const (
	ContentText      ContentKind = "text"
	ContentURL       ContentKind = "url"
	ContentMention   ContentKind = "mention"
	ContentCode      ContentKind = "code"
	ContentReference ContentKind = "reference"
)

// Code is an evaluated hoon snippet attached to a post.
type Code struct {
	Expression string          `json:"expression"`
	Output     json.RawMessage `json:"output,omitempty"`
}

// Content is one item of a graph post's contents array.
//
// On the wire each item is a single-key object: {"text": "..."},
// {"url": "..."}, {"mention": "~zod"}, {"code": {...}} or {"reference": {...}}.
// Text holds the string payload for text, url and mention. Raw holds the
// undecoded reference body.
type Content struct {
	Kind ContentKind
	Text string
	Code *Code
	Raw  json.RawMessage
}

// Text builds a text content item.
func Text(s string) Content { return Content{Kind: ContentText, Text: s} }

// URL builds a url content item.
func URL(s string) Content { return Content{Kind: ContentURL, Text: s} }

// Mention builds a mention content item for the given ship.
func Mention(s Ship) Content { return Content{Kind: ContentMention, Text: s.String()} }

// MarshalJSON renders the single-key wire object.
func (c Content) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ContentText, ContentURL, ContentMention:
		return json.Marshal(map[string]string{string(c.Kind): c.Text})
	case ContentCode:
		code := Code{}
		if c.Code != nil {
			code = *c.Code
		}
		if len(code.Output) == 0 {
			code.Output = json.RawMessage("[]")
		}
		return json.Marshal(map[string]Code{"code": code})
	case ContentReference:
		raw := c.Raw
		if len(raw) == 0 {
			raw = json.RawMessage("null")
		}
		return json.Marshal(map[string]json.RawMessage{"reference": raw})
	default:
		return nil, fmt.Errorf("unknown content kind %q", c.Kind)
	}
}

// UnmarshalJSON decodes one wire item, rejecting unknown or multi-key objects.
func (c *Content) UnmarshalJSON(b []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("content item: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("content item: expected one key, got %d", len(obj))
	}
	for k, v := range obj {
		kind := ContentKind(k)
		switch kind {
		case ContentText, ContentURL, ContentMention:
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("content %s: %w", k, err)
			}
			*c = Content{Kind: kind, Text: s}
		case ContentCode:
			var code Code
			if err := json.Unmarshal(v, &code); err != nil {
				return fmt.Errorf("content code: %w", err)
			}
			*c = Content{Kind: kind, Code: &code}
		case ContentReference:
			*c = Content{Kind: kind, Raw: append(json.RawMessage(nil), v...)}
		default:
			return fmt.Errorf("unknown content kind %q", k)
		}
	}
	return nil
}

// Contents is the ordered contents array of a post.
type Contents []Content

// FormattedString flattens the contents into a single display string.
//
// Text is appended as-is. URLs, mentions and code expressions are separated
// by a leading space. References are dropped.
func (cs Contents) FormattedString() string {
	var b strings.Builder
	for _, c := range cs {
		switch c.Kind {
		case ContentText:
			b.WriteString(c.Text)
		case ContentURL, ContentMention:
			b.WriteString(" ")
			b.WriteString(c.Text)
		case ContentCode:
			if c.Code != nil {
				b.WriteString(" ")
				b.WriteString(c.Code.Expression)
			}
		}
	}
	return b.String()
}

// Words splits the formatted contents on whitespace.
func (cs Contents) Words() []string {
	return strings.Fields(cs.FormattedString())
}

// NormalizeNFC returns a copy with every string payload in Unicode NFC form.
func (cs Contents) NormalizeNFC() Contents {
	if cs == nil {
		return nil
	}
	out := make(Contents, len(cs))
	for i, c := range cs {
		c.Text = norm.NFC.String(c.Text)
		if c.Code != nil {
			code := *c.Code
			code.Expression = norm.NFC.String(code.Expression)
			c.Code = &code
		}
		out[i] = c
	}
	return out
}
