// Package transport defines the boundary between the dispatcher and a ship.
//
// The dispatcher never speaks HTTP. It opens named streams, polls frames from
// them without blocking, and issues one-shot requests (poke, join, ack, post)
// through a Transport. The eyre package provides the production
// implementation; testutil provides an in-memory fake.
package transport

import (
	"context"

	"github.com/roach88/shipbot/internal/urbit"
)

// Stream names one server-pushed update stream: an agent plus a path.
type Stream struct {
	App  string `json:"app" yaml:"app"`
	Path string `json:"path" yaml:"path"`
}

// String renders the stream as "app/path".
func (s Stream) String() string {
	return s.App + s.Path
}

// Streams the dispatcher subscribes to.
var (
	InviteUpdates = Stream{App: "invite-store", Path: "/updates"}
	MetadataAll   = Stream{App: "metadata-store", Path: "/all"}
	GraphUpdates  = Stream{App: "graph-store", Path: "/updates"}
)

// Subscription is a handle to one open stream.
type Subscription interface {
	Stream() Stream
	// ID is the transport-assigned subscription id.
	ID() uint64
}

// Frame is one pushed unit of data from a subscription.
//
// ID is the monotonically increasing event id used for acknowledgment.
type Frame struct {
	ID     uint64
	Stream Stream
	Data   []byte
}

// JoinFlags carries the options of a thread join request.
type JoinFlags struct {
	// Requester is the ship asking to join.
	Requester    urbit.Ship
	App          string
	Autojoin     bool
	ShareContact bool
}

// Transport is the set of blocking calls the dispatcher makes to a ship.
//
// Every failure is returned as a *Error. Implementations must not panic.
type Transport interface {
	// Subscribe opens a stream.
	Subscribe(ctx context.Context, stream Stream) (Subscription, error)

	// Poll returns the next pending frame, or ok=false when none is pending.
	// Poll never waits for new frames to arrive.
	Poll(ctx context.Context, sub Subscription) (frame Frame, ok bool, err error)

	// Poke sends a one-shot command to an agent.
	Poke(ctx context.Context, app, mark string, payload any) error

	// Join asks the host of a chat resource to add this ship.
	Join(ctx context.Context, resource urbit.Resource, flags JoinFlags) error

	// Ack marks a frame of a subscription as consumed.
	Ack(ctx context.Context, sub Subscription, frameID uint64) error

	// PostMessage posts a message to a chat resource.
	PostMessage(ctx context.Context, resource urbit.Resource, msg urbit.Message) error
}
