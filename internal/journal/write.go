package journal

import (
	"context"
	"fmt"
	"time"
)

// Record appends an entry and returns its assigned seq.
//
// A zero RecordedAt is stamped with the current time. An empty payload is
// stored as "{}".
func (j *Journal) Record(ctx context.Context, e Entry) (int64, error) {
	if e.Cycle == "" {
		return 0, fmt.Errorf("record %s: cycle is required", e.Kind)
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	payload := string(e.Payload)
	if payload == "" {
		payload = "{}"
	}

	res, err := j.db.ExecContext(ctx, `
		INSERT INTO effects
		(cycle, cycle_seq, kind, resource, frame_id, outcome, error, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Cycle,
		e.CycleSeq,
		string(e.Kind),
		e.Resource,
		int64(e.FrameID),
		string(e.Outcome),
		e.Error,
		payload,
		e.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("record %s: %w", e.Kind, err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record %s: %w", e.Kind, err)
	}
	return seq, nil
}
