package models

// OperationKind is the discriminator of the Operation tagged union.
type OperationKind string

const (
	OpAddNode            OperationKind = "addNode"
	OpAddRelation        OperationKind = "addRelation"
	OpUpdateNode         OperationKind = "updateNode"
	OpUpdateRelation     OperationKind = "updateRelation"
	OpUpdateRelationList OperationKind = "updateRelationList"
	OpDeleteNode         OperationKind = "deleteNode"
)

// Operation is one primitive mutation submitted to the transactional sync
// endpoint. Exactly the fields of the active variant are populated; the rest
// are omitted from the wire form.
type Operation struct {
	Operation OperationKind `json:"operation"`

	// addNode
	Node *Node `json:"node,omitempty"`

	// addRelation
	Relation *Relation `json:"relation,omitempty"`

	// updateNode, deleteNode
	NodeID NodeID `json:"nodeId,omitempty"`

	// updateRelation, updateRelationList
	RelationID RelationID `json:"relationId,omitempty"`

	// updateRelationList: the ordering entry placing RelationID in FromID's
	// relation list. InsertAt of -1 appends.
	FromID   NodeID `json:"fromId,omitempty"`
	InsertAt *int   `json:"insertAt,omitempty"`

	// updateNode: full previous and next snapshots (the backend rejects
	// partial patches).
	OldProps *NodeProps `json:"oldProps,omitempty"`
	NewProps *NodeProps `json:"newProps,omitempty"`

	// updateRelation
	OldRelationProps *RelationProps `json:"oldRelationProps,omitempty"`
	NewRelationProps *RelationProps `json:"newRelationProps,omitempty"`
}

// AddNodeOp wraps a node in an addNode operation.
func AddNodeOp(n *Node) Operation {
	return Operation{Operation: OpAddNode, Node: n}
}

// AddRelationOp wraps a relation in an addRelation operation.
func AddRelationOp(r *Relation) Operation {
	return Operation{Operation: OpAddRelation, Relation: r}
}

// UpdateNodeOp builds the full-snapshot update for a node.
func UpdateNodeOp(id NodeID, oldProps, newProps *NodeProps) Operation {
	return Operation{Operation: OpUpdateNode, NodeID: id, OldProps: oldProps, NewProps: newProps}
}

// DeleteNodeOp builds a deleteNode operation. Relations pointing at the node
// are not cleaned up by the backend.
func DeleteNodeOp(id NodeID) Operation {
	return Operation{Operation: OpDeleteNode, NodeID: id}
}

// AppendRelationListOp builds the ordering entry that appends relationID to
// fromID's relation list.
func AppendRelationListOp(fromID NodeID, relationID RelationID) Operation {
	insertAt := -1
	return Operation{
		Operation:  OpUpdateRelationList,
		FromID:     fromID,
		RelationID: relationID,
		InsertAt:   &insertAt,
	}
}

// NewTextNode builds a node holding a single text block, owned by authorID,
// with both timestamps set to ts (unix milliseconds).
func NewTextNode(id NodeID, text, authorID string, ts int64) *Node {
	return &Node{
		ID:        id,
		AuthorID:  authorID,
		CreatedAt: ts,
		UpdatedAt: ts,
		Content:   TextContent(text),
	}
}

// NewChildRelation builds a generic containment edge from parent to child.
func NewChildRelation(id RelationID, from, to NodeID, ts int64) *Relation {
	return &Relation{
		ID:             id,
		FromID:         from,
		ToID:           to,
		RelationTypeID: RelationTypeChild,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
}

// NewTypeRelation builds the reserved __type__ edge attaching a label node
// to another relation's canonical slot.
func NewTypeRelation(id RelationID, from, to NodeID, ts int64) *Relation {
	return &Relation{
		ID:             id,
		FromID:         from,
		ToID:           to,
		RelationTypeID: RelationTypeType,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
}
