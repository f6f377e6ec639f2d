package dispatch

import (
	"github.com/roach88/shipbot/internal/urbit"
)

// Application names on the peer.
const (
	// ConversationApp is the metadata app-name of chat resources.
	ConversationApp = "graph"

	// GroupsApp is the app named in invite acceptance.
	GroupsApp = "groups"

	// GroupViewApp and GroupViewMark address invite acceptance pokes.
	GroupViewApp  = "group-view"
	GroupViewMark = "group-view-action"
)

// State is the position of the dispatcher in its cycle.
type State int32

const (
	StateIdle State = iota
	StateDraining
	StateActing
	StatePacing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StateActing:
		return "acting"
	case StatePacing:
		return "pacing"
	default:
		return "unknown"
	}
}

// JoinSource records which metadata case produced a join intent.
type JoinSource string

const (
	SourceAdd          JoinSource = "add"
	SourceAssociations JoinSource = "associations"
)

// JoinIntent is a resource slated for a join request this cycle.
type JoinIntent struct {
	Resource urbit.Resource
	Source   JoinSource
	FrameID  uint64
}

// OutboundMessage is a responder reply addressed to the resource the
// triggering message was posted in.
type OutboundMessage struct {
	Resource urbit.Resource
	Message  urbit.Message
	// InReplyTo is the index of the triggering post.
	InReplyTo string
	FrameID   uint64
}

// CycleReport summarizes one Draining+Acting pass.
type CycleReport struct {
	Token string
	Seq   int64

	// Frames is the number of frames popped.
	Frames int
	// Unrecognized is the number of frames that did not decode.
	Unrecognized int
	// Invites is the number of actual invites handled.
	Invites int
	// Acks is the number of successful acknowledgments.
	Acks int
	// SelfSuppressed is the number of graph updates authored by the bridge.
	SelfSuppressed int
	// Joins and Posts count successful requests.
	Joins int
	Posts int
	// Failures counts failed side effects, poll errors and responder panics.
	Failures int

	// JoinIntents and Outbound are the arenas staged this cycle.
	JoinIntents []JoinIntent
	Outbound    []OutboundMessage
}
