package dispatch

import (
	"github.com/roach88/shipbot/internal/decode"
)

// handleMetadata stages a join intent for every graph resource in the
// update, add first, then associations in mapping order. Duplicates are kept.
func (d *Dispatcher) handleMetadata(c *cycle, ev *decode.MetadataUpdate) {
	if ev.Added != nil {
		d.stageJoin(c, *ev.Added, SourceAdd, ev.Ref.ID)
	}
	for _, a := range ev.Associations {
		d.stageJoin(c, a, SourceAssociations, ev.Ref.ID)
	}
	if ev.Removed != nil {
		d.log.Info("removed from chat",
			"cycle", c.report.Token,
			"frame_id", ev.Ref.ID,
			"resource", ev.Removed.Resource.String(),
			"raw", string(ev.Removed.Raw),
		)
	}
	for _, s := range ev.Skipped {
		d.log.Warn("metadata entry skipped",
			"cycle", c.report.Token,
			"frame_id", ev.Ref.ID,
			"key", s.Key,
			"reason", s.Reason,
		)
	}
}

func (d *Dispatcher) stageJoin(c *cycle, a decode.Association, source JoinSource, frameID uint64) {
	if a.AppName != ConversationApp {
		return
	}
	d.intents = append(d.intents, JoinIntent{
		Resource: a.Resource,
		Source:   source,
		FrameID:  frameID,
	})
	d.log.Debug("join staged",
		"cycle", c.report.Token,
		"resource", a.Resource.String(),
		"source", string(source),
	)
}
