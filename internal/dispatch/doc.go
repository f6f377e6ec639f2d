// Package dispatch implements the shipbot update multiplexer and side-effect
// dispatcher.
//
// ARCHITECTURE:
//
// A Dispatcher owns one subscription per stream and runs a fixed cycle:
//
//	Idle -> Draining -> Acting -> Pacing -> Idle
//
// Draining walks the subscriptions in a fixed order (invite-store,
// metadata-store, graph-store) and pops frames from each until none remain.
// Each frame is decoded and handled as soon as it is popped:
//   - invite updates are accepted and acknowledged immediately, so the ack
//     always references the frame that carried the invite
//   - metadata updates stage join intents for graph resources
//   - graph updates not authored by the bridge itself go to the Responder,
//     and a reply is staged for the resource the message came from
//
// Acting executes the staged joins, then posts the staged replies. Pacing
// waits a fixed interval. Staged intents and replies live in per-cycle
// arenas that are reset when Draining begins.
//
// ERROR HANDLING:
//
// Decode failures are logged and skipped. Side-effect failures are logged,
// journaled and dropped; nothing is retried or carried into the next cycle.
// Only a subscription that cannot be opened is fatal, and it is reported
// before the loop starts.
//
// KNOWN GAP:
//
// No record of joined resources is kept. A resource delivered again by a
// later metadata replay is joined again; the host is expected to treat a
// repeat join as harmless.
package dispatch
