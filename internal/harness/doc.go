// Package harness runs scripted dispatch scenarios against the real
// dispatcher and checks what it did.
//
// A scenario feeds frames into an in-memory transport one cycle at a time,
// records every request the dispatcher makes, and evaluates assertions
// over that trace, the per-cycle reports and the side-effect journal.
//
// # Scenario Format
//
//	name: chart_command
//	description: "A chart request gets one reply"
//	ship: ~bridge
//	responder: chart
//	failures:
//	  - op: join
//	    error: "thread crashed"
//	cycles:
//	  - frames:
//	      - stream: graph
//	        json: { graph-update: { ... } }
//	      - stream: graph
//	        raw: "not json"
//	    expect: { frames: 2, unrecognized: 1 }
//	assertions:
//	  - type: trace_contains
//	    action: post
//	    args: { resource: "~bus/chat" }
//	  - type: journal_count
//	    where: { kind: join, outcome: failed }
//	    count: 1
//
// Streams are "invite", "metadata", "graph" or a full "app/path". JSON
// frames keep the key order written in YAML, which matters for metadata
// associations.
//
// # Assertion Types
//
//   - trace_contains: a call with the action and matching args exists
//   - trace_order: the first calls of each action appear in order
//   - trace_count: an action (optionally filtered by args) appears N times
//   - journal_count: N journal entries match the where clause
//
// # Deterministic Testing
//
// Cycle tokens come from a sequence generator ("cycle-1", "cycle-2", ...),
// frame ids from the fake transport's counter, and the journal lives in an
// in-memory SQLite database per run. Traces are therefore stable enough for
// golden comparison:
//
//	go test ./internal/harness -update
package harness
