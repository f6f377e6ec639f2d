package urbit

import "time"

// TimeSentLayout is the display format of AuthoredMessage.TimeSent (UTC).
const TimeSentLayout = "2006-01-02 15:04:05"

// Message is an outbound post under construction.
//
//	msg := urbit.NewMessage().AddText("chart: ").AddURL(link)
type Message struct {
	Contents Contents `json:"contents"`
}

// NewMessage returns an empty message.
func NewMessage() Message {
	return Message{}
}

// AddText appends a text item.
func (m Message) AddText(s string) Message {
	return m.add(Text(s))
}

// AddURL appends a url item.
func (m Message) AddURL(s string) Message {
	return m.add(URL(s))
}

// AddMention appends a mention of the given ship.
func (m Message) AddMention(s Ship) Message {
	return m.add(Mention(s))
}

// AddCode appends a code item with an empty output.
func (m Message) AddCode(expression string) Message {
	return m.add(Content{Kind: ContentCode, Code: &Code{Expression: expression}})
}

// IsEmpty reports whether the message has no content items.
func (m Message) IsEmpty() bool {
	return len(m.Contents) == 0
}

// add copies before appending so builder chains never share backing arrays.
func (m Message) add(c Content) Message {
	contents := make(Contents, len(m.Contents), len(m.Contents)+1)
	copy(contents, m.Contents)
	return Message{Contents: append(contents, c)}
}

// Post is one node of a graph-store add-nodes update.
type Post struct {
	Index    string
	Author   Ship
	TimeSent time.Time
	Contents Contents
}

// AuthoredMessage is the normalized unit handed to a responder.
type AuthoredMessage struct {
	Author   Ship
	Contents Contents
	// TimeSent is the send time formatted with TimeSentLayout.
	TimeSent string
	Index    string
	// Resource is the chat the message was posted in.
	Resource Resource
}

// NewAuthoredMessage builds the responder view of a post in a resource.
func NewAuthoredMessage(p Post, origin Resource) AuthoredMessage {
	return AuthoredMessage{
		Author:   p.Author,
		Contents: p.Contents,
		TimeSent: p.TimeSent.UTC().Format(TimeSentLayout),
		Index:    p.Index,
		Resource: origin,
	}
}

// Text returns the formatted contents.
func (m AuthoredMessage) Text() string {
	return m.Contents.FormattedString()
}

// Words returns the whitespace-separated words of the contents.
func (m AuthoredMessage) Words() []string {
	return m.Contents.Words()
}
