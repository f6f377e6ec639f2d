package eyre

import (
	"time"

	"github.com/roach88/shipbot/internal/urbit"
)

// graphPost is a post as graph-store expects it in add-nodes.
type graphPost struct {
	Author     string         `json:"author"`
	Index      string         `json:"index"`
	TimeSent   int64          `json:"time-sent"`
	Contents   urbit.Contents `json:"contents"`
	Hash       *string        `json:"hash"`
	Signatures []any          `json:"signatures"`
}

type graphNode struct {
	Post     graphPost `json:"post"`
	Children any       `json:"children"`
}

// addNodes builds the graph-update-3 payload adding msg as one node.
func addNodes(author urbit.Ship, resource urbit.Resource, msg urbit.Message, sent time.Time) map[string]any {
	index := urbit.NodeIndex(sent)
	contents := msg.Contents
	if contents == nil {
		contents = urbit.Contents{}
	}
	return map[string]any{
		"add-nodes": map[string]any{
			"resource": resource,
			"nodes": map[string]graphNode{
				index: {
					Post: graphPost{
						Author:     author.String(),
						Index:      index,
						TimeSent:   sent.UnixMilli(),
						Contents:   contents,
						Signatures: []any{},
					},
				},
			},
		},
	}
}
