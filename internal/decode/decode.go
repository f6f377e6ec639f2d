package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/roach88/shipbot/internal/transport"
	"github.com/roach88/shipbot/internal/urbit"
)

// Top-level keys of the known update shapes.
const (
	KeyGraphUpdate    = "graph-update"
	KeyInviteUpdate   = "invite-update"
	KeyMetadataUpdate = "metadata-update"
)

// Decode classifies and decodes one frame. It never panics and never returns
// nil.
func Decode(frame transport.Frame) Event {
	ref := FrameRef{ID: frame.ID, Stream: frame.Stream}

	if !gjson.ValidBytes(frame.Data) {
		return unrecognized(ref, frame.Data, &Error{
			Code:    ErrCodeMalformedJSON,
			FrameID: frame.ID,
			Err:     errors.New("invalid JSON"),
		})
	}

	root := gjson.ParseBytes(frame.Data)
	if !root.IsObject() {
		return unrecognized(ref, frame.Data, &Error{
			Code:    ErrCodeUnknownShape,
			FrameID: frame.ID,
			Err:     fmt.Errorf("top-level value is %s, not an object", root.Type),
		})
	}

	var (
		ev  Event
		err *Error
	)
	switch {
	case root.Get(KeyGraphUpdate).Exists():
		ev, err = decodeGraph(ref, root.Get(KeyGraphUpdate))
	case root.Get(KeyInviteUpdate).Exists():
		ev, err = decodeInvite(ref, root.Get(KeyInviteUpdate))
	case root.Get(KeyMetadataUpdate).Exists():
		ev, err = decodeMetadata(ref, root.Get(KeyMetadataUpdate))
	default:
		err = &Error{Code: ErrCodeUnknownShape, FrameID: frame.ID}
	}
	if err != nil {
		return unrecognized(ref, frame.Data, err)
	}
	return ev
}

func unrecognized(ref FrameRef, data []byte, err *Error) *Unrecognized {
	return &Unrecognized{Ref: ref, Err: err, Data: data}
}

func unsupported(ref FrameRef, key string, upd gjson.Result) *Error {
	variant := "(none)"
	upd.ForEach(func(k, _ gjson.Result) bool {
		variant = k.String()
		return false
	})
	return &Error{
		Code:    ErrCodeUnsupportedVariant,
		FrameID: ref.ID,
		Field:   key,
		Err:     fmt.Errorf("variant %s", variant),
	}
}

// wirePost mirrors a graph-store post. Pointer fields distinguish absent
// from zero.
type wirePost struct {
	Author   *string         `json:"author"`
	Index    *string         `json:"index"`
	TimeSent *int64          `json:"time-sent"`
	Contents *urbit.Contents `json:"contents"`
}

func decodeGraph(ref FrameRef, upd gjson.Result) (Event, *Error) {
	addNodes := upd.Get("add-nodes")
	if !addNodes.IsObject() {
		return nil, unsupported(ref, KeyGraphUpdate, upd)
	}

	resource, err := decodeResource(ref, addNodes.Get("resource"), KeyGraphUpdate+".add-nodes.resource")
	if err != nil {
		return nil, err
	}

	nodes := addNodes.Get("nodes")
	if !nodes.IsObject() {
		return nil, missing(ref.ID, KeyGraphUpdate+".add-nodes.nodes")
	}
	var (
		first gjson.Result
		count int
	)
	nodes.ForEach(func(_, node gjson.Result) bool {
		if count == 0 {
			first = node
		}
		count++
		return true
	})
	if count == 0 {
		return nil, missing(ref.ID, KeyGraphUpdate+".add-nodes.nodes")
	}

	post, err := decodePost(ref, first.Get("post"))
	if err != nil {
		return nil, err
	}

	return &GraphUpdate{
		Ref:       ref,
		Resource:  resource,
		Post:      post,
		NodeCount: count,
	}, nil
}

func decodePost(ref FrameRef, raw gjson.Result) (urbit.Post, *Error) {
	const field = KeyGraphUpdate + ".add-nodes.nodes.*.post"
	if !raw.IsObject() {
		return urbit.Post{}, missing(ref.ID, field)
	}

	var wp wirePost
	if err := json.Unmarshal([]byte(raw.Raw), &wp); err != nil {
		return urbit.Post{}, &Error{Code: ErrCodeMissingField, FrameID: ref.ID, Field: field, Err: err}
	}
	switch {
	case wp.Author == nil:
		return urbit.Post{}, missing(ref.ID, field+".author")
	case wp.Index == nil:
		return urbit.Post{}, missing(ref.ID, field+".index")
	case wp.TimeSent == nil:
		return urbit.Post{}, missing(ref.ID, field+".time-sent")
	case wp.Contents == nil:
		return urbit.Post{}, missing(ref.ID, field+".contents")
	}

	author, err := urbit.ParseShip(*wp.Author)
	if err != nil {
		return urbit.Post{}, &Error{Code: ErrCodeMissingField, FrameID: ref.ID, Field: field + ".author", Err: err}
	}

	return urbit.Post{
		Index:    *wp.Index,
		Author:   author,
		TimeSent: time.UnixMilli(*wp.TimeSent).UTC(),
		Contents: *wp.Contents,
	}, nil
}

func decodeResource(ref FrameRef, r gjson.Result, field string) (urbit.Resource, *Error) {
	ship := r.Get("ship")
	name := r.Get("name")
	if ship.Type != gjson.String {
		return urbit.Resource{}, missing(ref.ID, field+".ship")
	}
	if name.Type != gjson.String || name.Str == "" {
		return urbit.Resource{}, missing(ref.ID, field+".name")
	}
	resource, err := urbit.NewResource(ship.Str, name.Str)
	if err != nil {
		return urbit.Resource{}, &Error{Code: ErrCodeMissingField, FrameID: ref.ID, Field: field, Err: err}
	}
	return resource, nil
}

func decodeInvite(ref FrameRef, upd gjson.Result) (Event, *Error) {
	outer := upd.Get("invite")
	if !outer.Exists() || outer.Type == gjson.Null {
		return &InviteUpdate{Ref: ref}, nil
	}

	inner := outer.Get("invite")
	if !inner.IsObject() {
		return nil, missing(ref.ID, KeyInviteUpdate+".invite.invite")
	}
	resource, err := decodeResource(ref, inner.Get("resource"), KeyInviteUpdate+".invite.invite.resource")
	if err != nil {
		return nil, err
	}

	invite := &Invite{
		Resource: resource,
		Text:     inner.Get("text").String(),
		UID:      outer.Get("uid").String(),
	}
	if s := inner.Get("ship"); s.Type == gjson.String {
		if inviter, perr := urbit.ParseShip(s.Str); perr == nil {
			invite.Inviter = inviter
		}
	}
	return &InviteUpdate{Ref: ref, Invite: invite}, nil
}

func decodeMetadata(ref FrameRef, upd gjson.Result) (Event, *Error) {
	add := upd.Get("add")
	associations := upd.Get("associations")
	remove := upd.Get("remove")
	if !add.IsObject() && !associations.IsObject() && !remove.IsObject() {
		return nil, unsupported(ref, KeyMetadataUpdate, upd)
	}

	ev := &MetadataUpdate{Ref: ref}

	if add.IsObject() {
		if a, reason := decodeAssociation("", add); reason == "" {
			ev.Added = &a
		} else {
			ev.Skipped = append(ev.Skipped, Skip{Reason: reason})
		}
	}

	if associations.IsObject() {
		associations.ForEach(func(key, value gjson.Result) bool {
			if a, reason := decodeAssociation(key.String(), value); reason == "" {
				ev.Associations = append(ev.Associations, a)
			} else {
				ev.Skipped = append(ev.Skipped, Skip{Key: key.String(), Reason: reason})
			}
			return true
		})
	}

	if remove.IsObject() {
		removal := &Removal{Raw: []byte(remove.Raw)}
		if r := remove.Get("resource"); r.Type == gjson.String {
			if res, err := urbit.ParseResourcePath(r.Str); err == nil {
				removal.Resource = res
			}
		}
		ev.Removed = removal
	}

	return ev, nil
}

// decodeAssociation returns a skip reason for entries whose resource is
// not a "/ship/~host/name" string.
func decodeAssociation(key string, v gjson.Result) (Association, string) {
	r := v.Get("resource")
	if r.Type != gjson.String {
		return Association{}, "resource is not a string"
	}
	resource, err := urbit.ParseResourcePath(r.Str)
	if err != nil {
		return Association{}, err.Error()
	}
	return Association{
		Key:      key,
		AppName:  v.Get("app-name").String(),
		Resource: resource,
		Group:    v.Get("group").String(),
	}, ""
}
