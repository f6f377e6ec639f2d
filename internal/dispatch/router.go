package dispatch

import (
	"github.com/roach88/shipbot/internal/decode"
	"github.com/roach88/shipbot/internal/urbit"
)

// handleGraph routes a chat message to the Responder unless the bridge wrote
// it, and stages the reply for the message's own resource.
func (d *Dispatcher) handleGraph(c *cycle, ev *decode.GraphUpdate) {
	if d.identity.IsSelf(ev.Post.Author) {
		c.report.SelfSuppressed++
		d.log.Debug("ignoring own message",
			"cycle", c.report.Token,
			"frame_id", ev.Ref.ID,
			"resource", ev.Resource.String(),
		)
		return
	}

	msg := urbit.NewAuthoredMessage(ev.Post, ev.Resource)
	reply, ok := d.respond(c, msg)
	if !ok || reply.IsEmpty() {
		d.log.Debug("message ignored",
			"cycle", c.report.Token,
			"frame_id", ev.Ref.ID,
			"author", msg.Author.String(),
		)
		return
	}

	reply.Contents = reply.Contents.NormalizeNFC()
	d.outbound = append(d.outbound, OutboundMessage{
		Resource:  ev.Resource,
		Message:   reply,
		InReplyTo: ev.Post.Index,
		FrameID:   ev.Ref.ID,
	})
	d.log.Info("reply staged",
		"cycle", c.report.Token,
		"frame_id", ev.Ref.ID,
		"resource", ev.Resource.String(),
		"author", msg.Author.String(),
	)
}

// respond calls the Responder, treating a panic as no reply.
func (d *Dispatcher) respond(c *cycle, msg urbit.AuthoredMessage) (reply urbit.Message, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.report.Failures++
			d.log.Error("responder panicked",
				"cycle", c.report.Token,
				"author", msg.Author.String(),
				"index", msg.Index,
				"panic", r,
			)
			reply, ok = urbit.Message{}, false
		}
	}()
	return d.responder.Respond(msg)
}
