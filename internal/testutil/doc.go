// Package testutil provides test doubles shared by the dispatch, harness and
// cli tests: an in-memory Transport and deterministic cycle tokens.
package testutil
