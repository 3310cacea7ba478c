package reconcile

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mew-app/contacts-sync/pkg/models"
)

// resolverRounds bounds the breadth-first expansion: children, then value
// nodes and type relations, then label nodes.
const resolverRounds = 3

// PropertySlot is the unit the engine reasons about: the value node behind
// one labeled property. ValueNode retains the full node so updates can carry
// the complete previous state; it is nil when the layer protocol never
// returned the node.
type PropertySlot struct {
	ValueNodeID models.NodeID
	Value       string
	ValueNode   *models.Node
}

// ExistingContact is the resolved graph state of one synchronized contact.
type ExistingContact struct {
	MewID      models.NodeID
	Name       string
	Node       *models.Node
	Properties map[string]PropertySlot
}

// LayerFetcher is the narrow read surface the resolver needs. objectIDs mix
// node and relation ids; the response carries whatever the backend has for
// them, with no closure guarantee.
type LayerFetcher interface {
	GetLayerData(ctx context.Context, objectIDs []string) (*models.LayerData, error)
}

// Resolver materializes the graph state needed to reconstruct each
// contact's labeled properties.
type Resolver struct {
	client LayerFetcher
	log    zerolog.Logger
}

func NewResolver(client LayerFetcher, log zerolog.Logger) *Resolver {
	return &Resolver{
		client: client,
		log:    log.With().Str("component", "resolver").Logger(),
	}
}

// ResolveExisting fetches layer data for the folder's direct children and
// expands it breadth-first until each child's properties can be
// reconstructed. Failed rounds degrade to whatever has been merged so far: a
// completely failed first round yields an empty map, which the engine treats
// as "everything is new". Children without a resolvable appleContactId are
// not sync targets and are dropped.
func (r *Resolver) ResolveExisting(ctx context.Context, childIDs []models.NodeID) map[string]*ExistingContact {
	out := make(map[string]*ExistingContact)
	if len(childIDs) == 0 {
		return out
	}

	acc := models.NewLayerData()
	childSet := make(map[models.NodeID]bool, len(childIDs))
	for _, id := range childIDs {
		childSet[id] = true
	}

	candidates := make([]string, 0, len(childIDs))
	for _, id := range childIDs {
		candidates = append(candidates, string(id))
	}

	for round := 1; round <= resolverRounds; round++ {
		if len(candidates) == 0 {
			break
		}
		ld, err := r.client.GetLayerData(ctx, candidates)
		if err != nil {
			r.log.Warn().Err(err).Int("round", round).Int("ids", len(candidates)).
				Msg("layer fetch failed; continuing with partial state")
		} else {
			acc.Merge(ld)
		}
		switch round {
		case 1:
			candidates = r.valueAndTypeCandidates(acc, childSet)
		case 2:
			candidates = r.labelCandidates(acc)
		}
	}

	for _, childID := range childIDs {
		node, ok := acc.NodesByID[childID]
		if !ok {
			continue
		}
		contact := &ExistingContact{
			MewID:      childID,
			Name:       node.Text(),
			Node:       node,
			Properties: make(map[string]PropertySlot),
		}
		for _, rel := range acc.RelationsByID {
			if rel.FromID != childID || rel.RelationTypeID == models.RelationTypeType {
				continue
			}
			label := resolveLabel(acc, rel)
			if label == "" {
				// A relation without a resolvable label is not a property.
				continue
			}
			if _, exists := contact.Properties[label]; exists {
				continue
			}
			valueNode := acc.NodesByID[rel.ToID]
			contact.Properties[label] = PropertySlot{
				ValueNodeID: rel.ToID,
				Value:       valueNode.Text(),
				ValueNode:   valueNode,
			}
		}

		appleID := contact.Properties[LabelAppleContactID].Value
		if appleID == "" {
			r.log.Debug().Str("nodeId", string(childID)).
				Msg("child has no appleContactId; not a sync target")
			continue
		}
		out[appleID] = contact
	}

	return out
}

// valueAndTypeCandidates collects the ids needed after round 1: value nodes
// and canonical type relations of every edge leaving a child.
func (r *Resolver) valueAndTypeCandidates(acc *models.LayerData, childSet map[models.NodeID]bool) []string {
	var out []string
	for _, rel := range acc.RelationsByID {
		if !childSet[rel.FromID] {
			continue
		}
		if !acc.HasNode(rel.ToID) {
			out = append(out, string(rel.ToID))
		}
		if rel.CanonicalRelationID != nil && !acc.HasRelation(*rel.CanonicalRelationID) {
			out = append(out, string(*rel.CanonicalRelationID))
		}
	}
	return out
}

// labelCandidates collects label node ids referenced by resolved __type__
// relations but not yet fetched.
func (r *Resolver) labelCandidates(acc *models.LayerData) []string {
	var out []string
	for _, rel := range acc.RelationsByID {
		if rel.RelationTypeID != models.RelationTypeType {
			continue
		}
		if !acc.HasNode(rel.ToID) {
			out = append(out, string(rel.ToID))
		}
	}
	return out
}

// resolveLabel walks relation → canonicalRelationId → __type__ relation →
// label node text. Any broken link yields "".
func resolveLabel(acc *models.LayerData, rel *models.Relation) string {
	if rel.CanonicalRelationID == nil {
		return ""
	}
	typeRel, ok := acc.RelationsByID[*rel.CanonicalRelationID]
	if !ok || typeRel.RelationTypeID != models.RelationTypeType {
		return ""
	}
	labelNode, ok := acc.NodesByID[typeRel.ToID]
	if !ok {
		return ""
	}
	return labelNode.Text()
}
