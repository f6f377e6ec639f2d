package dispatch

import (
	"context"
	"encoding/json"

	"github.com/roach88/shipbot/internal/journal"
)

// Recorder receives one entry per attempted side effect.
// *journal.Journal implements it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (int64, error)
}

// record journals an effect. Journal failures are logged and never affect
// the cycle.
func (d *Dispatcher) record(ctx context.Context, c *cycle, kind journal.Kind, resource string, frameID uint64, payload any, effectErr error) {
	if d.recorder == nil {
		return
	}

	e := journal.Entry{
		Cycle:    c.report.Token,
		CycleSeq: c.report.Seq,
		Kind:     kind,
		Resource: resource,
		FrameID:  frameID,
		Outcome:  journal.OutcomeOK,
	}
	if effectErr != nil {
		e.Outcome = journal.OutcomeFailed
		e.Error = effectErr.Error()
	}
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			e.Payload = b
		}
	}

	if _, err := d.recorder.Record(ctx, e); err != nil {
		d.log.Warn("journal write failed",
			"cycle", c.report.Token,
			"kind", string(kind),
			"error", err,
		)
	}
}
