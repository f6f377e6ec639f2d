package dispatch

import (
	"context"

	"github.com/roach88/shipbot/internal/journal"
	"github.com/roach88/shipbot/internal/transport"
)

// joinFlags are the flags of every chat join the bridge sends.
func (d *Dispatcher) joinFlags() transport.JoinFlags {
	return transport.JoinFlags{
		Requester:    d.identity.Ship(),
		App:          ConversationApp,
		Autojoin:     true,
		ShareContact: true,
	}
}

// executeJoins sends one join per staged intent, in staging order.
// No join state is kept, so a resource staged twice is joined twice.
func (d *Dispatcher) executeJoins(ctx context.Context, c *cycle) {
	flags := d.joinFlags()
	for _, in := range d.intents {
		err := d.transport.Join(ctx, in.Resource, flags)
		d.record(ctx, c, journal.KindJoin, in.Resource.String(), in.FrameID, map[string]any{
			"resource": in.Resource,
			"source":   in.Source,
		}, err)
		if err != nil {
			c.report.Failures++
			d.log.Warn("join failed",
				"cycle", c.report.Token,
				"resource", in.Resource.String(),
				"error", err,
			)
			continue
		}
		c.report.Joins++
		d.log.Info("joined chat",
			"cycle", c.report.Token,
			"resource", in.Resource.String(),
			"source", string(in.Source),
		)
	}
}

// postMessages posts every staged reply, in staging order.
func (d *Dispatcher) postMessages(ctx context.Context, c *cycle) {
	for _, out := range d.outbound {
		err := d.transport.PostMessage(ctx, out.Resource, out.Message)
		d.record(ctx, c, journal.KindPost, out.Resource.String(), out.FrameID, out.Message, err)
		if err != nil {
			c.report.Failures++
			d.log.Warn("post failed",
				"cycle", c.report.Token,
				"resource", out.Resource.String(),
				"error", err,
			)
			continue
		}
		c.report.Posts++
		d.log.Info("replied",
			"cycle", c.report.Token,
			"resource", out.Resource.String(),
			"in_reply_to", out.InReplyTo,
		)
	}
}
