package harness

import (
	"github.com/roach88/shipbot/internal/dispatch"
	"github.com/roach88/shipbot/internal/journal"
)

// Trace event types.
const (
	EventCall   = "call"
	EventReport = "report"
)

// TraceEvent is one request the dispatcher made, or the report closing a
// cycle. Cycle 0 holds the subscriptions made when streams are opened.
type TraceEvent struct {
	Type    string         `json:"type"`
	Cycle   int            `json:"cycle"`
	Action  string         `json:"action,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome,omitempty"`
	Result  map[string]any `json:"result,omitempty"`
	Seq     int64          `json:"seq"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every cycle expectation and assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors lists failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`

	// Reports holds one report per scripted cycle.
	Reports []dispatch.CycleReport `json:"-"`

	// Journal is the full side-effect journal after the last cycle.
	Journal []journal.Entry `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addCall appends a call event.
func (r *Result) addCall(cycle int, action string, args map[string]any, outcome string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    EventCall,
		Cycle:   cycle,
		Action:  action,
		Args:    args,
		Outcome: outcome,
		Seq:     int64(len(r.Trace) + 1),
	})
}

// addReport appends the report event of a cycle.
func (r *Result) addReport(cycle int, report dispatch.CycleReport) {
	r.Reports = append(r.Reports, report)
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventReport,
		Cycle:  cycle,
		Result: reportCounts(report),
		Seq:    int64(len(r.Trace) + 1),
	})
}

// reportCounts flattens a report into the fields scenarios can expect on.
func reportCounts(r dispatch.CycleReport) map[string]any {
	return map[string]any{
		"token":           r.Token,
		"frames":          r.Frames,
		"unrecognized":    r.Unrecognized,
		"invites":         r.Invites,
		"acks":            r.Acks,
		"self_suppressed": r.SelfSuppressed,
		"joins":           r.Joins,
		"posts":           r.Posts,
		"failures":        r.Failures,
	}
}
