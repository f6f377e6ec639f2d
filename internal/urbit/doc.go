// Package urbit defines the domain values shared by every layer of shipbot.
//
// The types here are plain values with no I/O:
//   - Ship: a ship name, stored without the leading "~"
//   - Resource: a (host ship, name) pair naming a joinable chat or group
//   - Content / Contents: the items that make up a graph post
//   - Message: a builder for outbound contents
//   - AuthoredMessage: the normalized unit handed to a responder
//
// Time values on the wire use the @da encoding (see da.go). Node indexes are
// decimal @da strings prefixed with "/".
package urbit
