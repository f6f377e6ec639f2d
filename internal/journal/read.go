package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Entries returns journaled effects matching the filter, ordered by seq.
//
// With a Limit, the most recent entries are returned, still in seq order.
// Returns an empty slice (not nil) when nothing matches.
func (j *Journal) Entries(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Cycle != "" {
		where = append(where, "cycle = ?")
		args = append(args, f.Cycle)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}

	query := `SELECT seq, cycle, cycle_seq, kind, resource, frame_id, outcome, error, payload, recorded_at FROM effects`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Limit > 0 {
		query = `SELECT * FROM (` + query + ` ORDER BY seq DESC LIMIT ?) ORDER BY seq ASC`
		args = append(args, f.Limit)
	} else {
		query += " ORDER BY seq ASC"
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return entries, nil
}

// Stats counts entries grouped by kind and outcome.
func (j *Journal) Stats(ctx context.Context) ([]Stat, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT kind, outcome, COUNT(*)
		FROM effects
		GROUP BY kind, outcome
		ORDER BY kind ASC, outcome ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := []Stat{}
	for rows.Next() {
		var (
			s       Stat
			kind    string
			outcome string
		)
		if err := rows.Scan(&kind, &outcome, &s.Count); err != nil {
			return nil, fmt.Errorf("scan stat: %w", err)
		}
		s.Kind = Kind(kind)
		s.Outcome = Outcome(outcome)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e          Entry
		kind       string
		outcome    string
		frameID    int64
		payload    string
		recordedAt string
	)
	if err := rows.Scan(&e.Seq, &e.Cycle, &e.CycleSeq, &kind, &e.Resource, &frameID, &outcome, &e.Error, &payload, &recordedAt); err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %d recorded_at: %w", e.Seq, err)
	}
	e.Kind = Kind(kind)
	e.Outcome = Outcome(outcome)
	e.FrameID = uint64(frameID)
	e.Payload = json.RawMessage(payload)
	e.RecordedAt = t
	return e, nil
}
