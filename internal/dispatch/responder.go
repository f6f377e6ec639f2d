package dispatch

import "github.com/roach88/shipbot/internal/urbit"

// Responder decides whether and how the bridge replies to a chat message.
//
// Respond runs synchronously inside the dispatch cycle. It may do slow I/O;
// a slow Responder lengthens the cycle. It must not retain msg.
type Responder interface {
	Respond(msg urbit.AuthoredMessage) (reply urbit.Message, ok bool)
}

// ResponderFunc adapts a function to the Responder interface.
type ResponderFunc func(msg urbit.AuthoredMessage) (urbit.Message, bool)

// Respond calls f(msg).
func (f ResponderFunc) Respond(msg urbit.AuthoredMessage) (urbit.Message, bool) {
	return f(msg)
}

// Silent never replies.
var Silent Responder = ResponderFunc(func(urbit.AuthoredMessage) (urbit.Message, bool) {
	return urbit.Message{}, false
})
