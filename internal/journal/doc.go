// Package journal provides a SQLite-backed audit log of dispatcher side
// effects.
//
// Every invite acceptance, acknowledgment, join and post the dispatcher
// attempts is appended as one Entry with its outcome. The journal is write
// only from the dispatcher's point of view: nothing in the dispatch loop
// reads it back, so it never suppresses a repeat join.
//
// # Database Configuration
//
//   - WAL mode: the CLI can read while the bot writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Entries are ordered by seq, an INTEGER PRIMARY KEY assigned on insert.
package journal
