package journal

import (
	"encoding/json"
	"time"
)

// Kind is the side effect an entry records.
type Kind string

const (
	KindInviteAccept Kind = "invite_accept"
	KindAck          Kind = "ack"
	KindJoin         Kind = "join"
	KindPost         Kind = "post"
)

// Outcome is the result of a side effect.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeFailed Outcome = "failed"
)

// Entry is one journaled side effect.
type Entry struct {
	// Seq is assigned by Record.
	Seq int64 `json:"seq"`

	// Cycle is the token of the dispatch cycle that attempted the effect.
	Cycle string `json:"cycle"`

	// CycleSeq is the cycle's sequence number within the process.
	CycleSeq int64 `json:"cycle_seq"`

	Kind Kind `json:"kind"`

	// Resource is the target resource ("~host/name"), empty for acks.
	Resource string `json:"resource,omitempty"`

	// FrameID is the triggering frame, zero when not applicable.
	FrameID uint64 `json:"frame_id,omitempty"`

	Outcome Outcome `json:"outcome"`

	// Error is the failure message when Outcome is failed.
	Error string `json:"error,omitempty"`

	// Payload is the request body sent, as JSON.
	Payload json.RawMessage `json:"payload,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`
}

// Filter narrows an Entries query. Zero fields match everything.
type Filter struct {
	Cycle string
	Kind  Kind
	// Limit caps the number of entries returned, newest excluded first.
	Limit int
}

// Stat counts entries by kind and outcome.
type Stat struct {
	Kind    Kind    `json:"kind"`
	Outcome Outcome `json:"outcome"`
	Count   int     `json:"count"`
}
