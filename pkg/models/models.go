package models

// ContentBlockType discriminates the typed blocks of a node's content.
type ContentBlockType string

const (
	ContentTypeText    ContentBlockType = "text"
	ContentTypeMention ContentBlockType = "mention"
)

// ContentBlock is one element of a node's ordered content sequence. The
// synchronization engine only ever produces and consumes single-block text
// content; mention blocks may appear in layer data and are passed through
// untouched.
type ContentBlock struct {
	Type  ContentBlockType `json:"type"`
	Value string           `json:"value"`
}

// TextContent builds the single-block text content used for every node the
// engine creates.
func TextContent(text string) []ContentBlock {
	return []ContentBlock{{Type: ContentTypeText, Value: text}}
}

// Node is a graph vertex carrying textual content and ownership metadata.
// CanonicalRelationID optionally names the relation that types or owns the
// node; for property value nodes it points at the edge connecting them to
// their parent.
type Node struct {
	ID                  NodeID         `json:"id"`
	AuthorID            string         `json:"authorId"`
	CreatedAt           int64          `json:"createdAt"`
	UpdatedAt           int64          `json:"updatedAt"`
	Content             []ContentBlock `json:"content"`
	IsPublic            bool           `json:"isPublic"`
	CanonicalRelationID *RelationID    `json:"canonicalRelationId"`
	IsChecked           bool           `json:"isChecked"`
}

// Text returns the value of the node's first text block, or "" when the node
// has no text content.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	for _, b := range n.Content {
		if b.Type == ContentTypeText {
			return b.Value
		}
	}
	return ""
}

// Props returns the node's mutable properties as an update snapshot. The
// sync endpoint is optimistic-concurrency style: updates must carry the full
// previous state, so callers take a Props snapshot before mutating.
func (n *Node) Props() *NodeProps {
	content := make([]ContentBlock, len(n.Content))
	copy(content, n.Content)
	return &NodeProps{
		AuthorID:            n.AuthorID,
		Content:             content,
		IsPublic:            n.IsPublic,
		CanonicalRelationID: n.CanonicalRelationID,
		IsChecked:           n.IsChecked,
		UpdatedAt:           n.UpdatedAt,
	}
}

// NodeProps is the mutable subset of a node carried by updateNode operations
// as both oldProps and newProps.
type NodeProps struct {
	AuthorID            string         `json:"authorId"`
	Content             []ContentBlock `json:"content"`
	IsPublic            bool           `json:"isPublic"`
	CanonicalRelationID *RelationID    `json:"canonicalRelationId"`
	IsChecked           bool           `json:"isChecked"`
	UpdatedAt           int64          `json:"updatedAt"`
}

// Relation type ids. "child" is the generic containment edge; "__type__" is
// reserved for attaching a human-readable label node to another relation and
// never appears as a property edge itself.
const (
	RelationTypeChild = "child"
	RelationTypeType  = "__type__"
)

// Relation is a directed, typed edge between two nodes.
type Relation struct {
	ID                  RelationID  `json:"id"`
	FromID              NodeID      `json:"fromId"`
	ToID                NodeID      `json:"toId"`
	RelationTypeID      string      `json:"relationTypeId"`
	CanonicalRelationID *RelationID `json:"canonicalRelationId"`
	IsPublic            bool        `json:"isPublic"`
	CreatedAt           int64       `json:"createdAt"`
	UpdatedAt           int64       `json:"updatedAt"`
}

// RelationProps is the mutable subset of a relation carried by
// updateRelation operations.
type RelationProps struct {
	FromID              NodeID      `json:"fromId"`
	ToID                NodeID      `json:"toId"`
	RelationTypeID      string      `json:"relationTypeId"`
	CanonicalRelationID *RelationID `json:"canonicalRelationId"`
	IsPublic            bool        `json:"isPublic"`
	UpdatedAt           int64       `json:"updatedAt"`
}

// LayerData is a batch graph snapshot for a requested set of node and
// relation ids. The layer endpoint may include entities that were not
// requested and may omit entities that requested ones reference; callers
// must not assume closure.
type LayerData struct {
	NodesByID     map[NodeID]*Node         `json:"nodesById"`
	RelationsByID map[RelationID]*Relation `json:"relationsById"`
}

// NewLayerData returns an empty, initialized snapshot.
func NewLayerData() *LayerData {
	return &LayerData{
		NodesByID:     make(map[NodeID]*Node),
		RelationsByID: make(map[RelationID]*Relation),
	}
}

// Merge folds other into ld, keeping ld's entry when both sides carry the
// same id.
func (ld *LayerData) Merge(other *LayerData) {
	if other == nil {
		return
	}
	for id, n := range other.NodesByID {
		if _, ok := ld.NodesByID[id]; !ok {
			ld.NodesByID[id] = n
		}
	}
	for id, r := range other.RelationsByID {
		if _, ok := ld.RelationsByID[id]; !ok {
			ld.RelationsByID[id] = r
		}
	}
}

// HasNode reports whether the snapshot contains the node.
func (ld *LayerData) HasNode(id NodeID) bool {
	_, ok := ld.NodesByID[id]
	return ok
}

// HasRelation reports whether the snapshot contains the relation.
func (ld *LayerData) HasRelation(id RelationID) bool {
	_, ok := ld.RelationsByID[id]
	return ok
}
