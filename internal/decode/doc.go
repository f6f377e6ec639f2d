// Package decode turns raw stream frames into typed domain events.
//
// Decode never fails: a frame that is not valid JSON, has no known top-level
// key, or is missing a required field becomes an *Unrecognized event carrying
// a *Error. Callers log it and move on to the next frame.
//
// Known shapes:
//
//	{"graph-update":    {"add-nodes": {"resource": {...}, "nodes": {...}}}}
//	{"invite-update":   {"invite": {"invite": {"resource": {...}}}} | null}
//	{"metadata-update": {"add": {...}} | {"associations": {...}} | {"remove": {...}}}
//
// JSON objects that act as ordered mappings (nodes, associations) are walked
// in document order.
package decode
