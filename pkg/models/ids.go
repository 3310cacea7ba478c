package models

import "github.com/google/uuid"

// NodeID identifies a node in the Mew graph. Most ids are freshly generated
// UUIDs, but server-assigned ids such as the user root ("user-root-<author>")
// are not, so the type is a plain string rather than a wrapped uuid.UUID.
type NodeID string

// NewNodeID returns a fresh, globally unique node id.
func NewNodeID() NodeID {
	return NodeID(uuid.NewString())
}

func (id NodeID) String() string { return string(id) }
func (id NodeID) IsZero() bool   { return id == "" }

// RelationID identifies a relation in the Mew graph.
type RelationID string

// NewRelationID returns a fresh, globally unique relation id.
func NewRelationID() RelationID {
	return RelationID(uuid.NewString())
}

func (id RelationID) String() string { return string(id) }
func (id RelationID) IsZero() bool   { return id == "" }
