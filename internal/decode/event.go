package decode

import (
	"github.com/roach88/shipbot/internal/transport"
	"github.com/roach88/shipbot/internal/urbit"
)

// Kind names a domain event variant.
type Kind string

const (
	KindGraph        Kind = "graph"
	KindInvite       Kind = "invite"
	KindMetadata     Kind = "metadata"
	KindUnrecognized Kind = "unrecognized"
)

// Event is a decoded frame. The concrete type is one of *GraphUpdate,
// *InviteUpdate, *MetadataUpdate or *Unrecognized.
type Event interface {
	Kind() Kind
	Frame() FrameRef
}

// FrameRef identifies the frame an event was decoded from.
type FrameRef struct {
	ID     uint64
	Stream transport.Stream
}

// GraphUpdate is a graph-store add-nodes update.
type GraphUpdate struct {
	Ref FrameRef
	// Resource is the chat the nodes were added to.
	Resource urbit.Resource
	// Post is the first node of the update in document order.
	Post urbit.Post
	// NodeCount is the number of nodes in the update.
	NodeCount int
}

// InviteUpdate is an invite-store update.
//
// Invite is nil for invite-store notifications that are not new invites.
type InviteUpdate struct {
	Ref    FrameRef
	Invite *Invite
}

// Invite is a pending invitation to a group.
type Invite struct {
	Resource urbit.Resource
	// Inviter is the ship that sent the invite, if present.
	Inviter urbit.Ship
	Text    string
	UID     string
}

// MetadataUpdate is a metadata-store update. Any subset of the three cases
// may be set.
type MetadataUpdate struct {
	Ref FrameRef
	// Added is set for an "add" update.
	Added *Association
	// Associations holds the entries of an "associations" update in
	// document order.
	Associations []Association
	// Removed is set for a "remove" update.
	Removed *Removal
	// Skipped lists entries dropped for a bad resource field.
	Skipped []Skip
}

// Skip is a metadata entry the decoder dropped.
type Skip struct {
	// Key is the mapping key, empty for add.
	Key    string
	Reason string
}

// Association binds an app resource to a group.
type Association struct {
	// Key is the mapping key of an associations entry, empty for add.
	Key      string
	AppName  string
	Resource urbit.Resource
	// Group is the group path, kept verbatim.
	Group string
}

// Removal is a metadata-store "remove" update.
type Removal struct {
	// Resource is set when the removed resource path parses.
	Resource urbit.Resource
	Raw      []byte
}

// Unrecognized is a frame that could not be decoded.
type Unrecognized struct {
	Ref FrameRef
	Err *Error
	// Data is the raw frame payload.
	Data []byte
}

func (e *GraphUpdate) Kind() Kind    { return KindGraph }
func (e *InviteUpdate) Kind() Kind   { return KindInvite }
func (e *MetadataUpdate) Kind() Kind { return KindMetadata }
func (e *Unrecognized) Kind() Kind   { return KindUnrecognized }

func (e *GraphUpdate) Frame() FrameRef    { return e.Ref }
func (e *InviteUpdate) Frame() FrameRef   { return e.Ref }
func (e *MetadataUpdate) Frame() FrameRef { return e.Ref }
func (e *Unrecognized) Frame() FrameRef   { return e.Ref }
