package responder

import "github.com/roach88/shipbot/internal/urbit"

// Echo repeats each message back with a mention of its author.
type Echo struct{}

// Respond implements dispatch.Responder. Empty messages are ignored.
func (Echo) Respond(msg urbit.AuthoredMessage) (urbit.Message, bool) {
	text := msg.Text()
	if text == "" {
		return urbit.Message{}, false
	}
	return urbit.NewMessage().AddMention(msg.Author).AddText(" " + text), true
}
