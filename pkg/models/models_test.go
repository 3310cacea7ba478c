package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeText(t *testing.T) {
	t.Run("first text block", func(t *testing.T) {
		n := &Node{Content: []ContentBlock{
			{Type: ContentTypeMention, Value: "someone"},
			{Type: ContentTypeText, Value: "hello"},
		}}
		assert.Equal(t, "hello", n.Text())
	})

	t.Run("nil and empty nodes", func(t *testing.T) {
		var n *Node
		assert.Equal(t, "", n.Text())
		assert.Equal(t, "", (&Node{}).Text())
	})
}

func TestNodeProps(t *testing.T) {
	relID := RelationID("r1")
	n := &Node{
		ID:                  "n1",
		AuthorID:            "auth0|u1",
		UpdatedAt:           500,
		Content:             TextContent("hello"),
		CanonicalRelationID: &relID,
	}

	props := n.Props()
	assert.Equal(t, "auth0|u1", props.AuthorID)
	assert.Equal(t, int64(500), props.UpdatedAt)
	require.Equal(t, &relID, props.CanonicalRelationID)

	// Snapshots must not alias the node's content; two snapshots back an
	// oldProps/newProps pair where only one side mutates.
	props.Content[0].Value = "changed"
	assert.Equal(t, "hello", n.Text())
}

func TestLayerDataMerge(t *testing.T) {
	a := NewLayerData()
	a.NodesByID["n1"] = &Node{ID: "n1", Content: TextContent("first")}

	b := NewLayerData()
	b.NodesByID["n1"] = &Node{ID: "n1", Content: TextContent("second")}
	b.NodesByID["n2"] = &Node{ID: "n2"}
	b.RelationsByID["r1"] = &Relation{ID: "r1"}

	a.Merge(b)
	// Existing entries win; merge only fills gaps.
	assert.Equal(t, "first", a.NodesByID["n1"].Text())
	assert.True(t, a.HasNode("n2"))
	assert.True(t, a.HasRelation("r1"))

	a.Merge(nil)
	assert.Len(t, a.NodesByID, 2)
}

func TestOperationBuilders(t *testing.T) {
	t.Run("append keeps explicit -1", func(t *testing.T) {
		op := AppendRelationListOp("parent", "r1")
		assert.Equal(t, OpUpdateRelationList, op.Operation)
		require.NotNil(t, op.InsertAt)
		assert.Equal(t, -1, *op.InsertAt)
	})

	t.Run("text node carries both timestamps", func(t *testing.T) {
		n := NewTextNode("n1", "hello", "auth0|u1", 42)
		assert.Equal(t, int64(42), n.CreatedAt)
		assert.Equal(t, int64(42), n.UpdatedAt)
		assert.Equal(t, "hello", n.Text())
	})

	t.Run("relation constructors set type ids", func(t *testing.T) {
		child := NewChildRelation("r1", "a", "b", 42)
		assert.Equal(t, RelationTypeChild, child.RelationTypeID)
		typed := NewTypeRelation("r2", "a", "b", 42)
		assert.Equal(t, RelationTypeType, typed.RelationTypeID)
	})
}
