// Package models defines the wire-level entities of the Mew graph API and
// the external contact records fed into the synchronization engine.
//
// The Mew graph has two stored entity kinds: [Node] and [Relation]. A node
// carries ordered textual content; a relation is a directed, typed edge
// between two nodes. There is no native "named field" concept; a property
// of a node is realized as a value node, a connecting relation, and a label
// node reached through the relation's canonical __type__ indirection. The
// traversal mechanics live in the reconcile package; this package only
// defines the shapes that travel over the wire.
//
// Mutations are expressed as [Operation] values, a tagged union on the
// "operation" field, submitted in transactional batches to POST /sync.
// Reads come back as [LayerData] snapshots from POST /layer, with no
// guarantee of closure over referenced ids.
package models
