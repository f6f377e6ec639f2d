package dispatch

import (
	"context"

	"github.com/roach88/shipbot/internal/decode"
	"github.com/roach88/shipbot/internal/journal"
	"github.com/roach88/shipbot/internal/transport"
	"github.com/roach88/shipbot/internal/urbit"
)

// InviteAccept is the group-view-action poke that accepts an invite.
type InviteAccept struct {
	Join InviteJoin `json:"join"`
}

// InviteJoin is the body of InviteAccept.
type InviteJoin struct {
	Resource     urbit.Resource `json:"resource"`
	Ship         urbit.Ship     `json:"ship"`
	App          string         `json:"app"`
	Autojoin     bool           `json:"autojoin"`
	ShareContact bool           `json:"shareContact"`
}

// NewInviteAccept builds the acceptance poke for an invite to resource. The
// resource host is asked to add us.
func NewInviteAccept(resource urbit.Resource) InviteAccept {
	return InviteAccept{Join: InviteJoin{
		Resource:     resource,
		Ship:         resource.Ship,
		App:          GroupsApp,
		Autojoin:     true,
		ShareContact: true,
	}}
}

// handleInvite accepts an invite and then acknowledges its frame. Both calls
// are fire-and-forget: a failed accept is still acknowledged.
func (d *Dispatcher) handleInvite(ctx context.Context, c *cycle, sub transport.Subscription, ev *decode.InviteUpdate) {
	if ev.Invite == nil {
		d.log.Debug("invite-store update without invite",
			"cycle", c.report.Token,
			"frame_id", ev.Ref.ID,
		)
		return
	}
	c.report.Invites++

	resource := ev.Invite.Resource
	d.log.Info("invite received",
		"cycle", c.report.Token,
		"frame_id", ev.Ref.ID,
		"resource", resource.String(),
		"inviter", ev.Invite.Inviter.String(),
	)

	poke := NewInviteAccept(resource)
	err := d.transport.Poke(ctx, GroupViewApp, GroupViewMark, poke)
	d.record(ctx, c, journal.KindInviteAccept, resource.String(), ev.Ref.ID, poke, err)
	if err != nil {
		c.report.Failures++
		d.log.Warn("invite accept failed",
			"cycle", c.report.Token,
			"resource", resource.String(),
			"error", err,
		)
	} else {
		d.log.Info("invite accepted",
			"cycle", c.report.Token,
			"resource", resource.String(),
		)
	}

	err = d.transport.Ack(ctx, sub, ev.Ref.ID)
	d.record(ctx, c, journal.KindAck, "", ev.Ref.ID, map[string]uint64{"event-id": ev.Ref.ID}, err)
	if err != nil {
		c.report.Failures++
		d.log.Warn("ack failed",
			"cycle", c.report.Token,
			"frame_id", ev.Ref.ID,
			"error", err,
		)
		return
	}
	c.report.Acks++
}
