package reconcile

import (
	"strings"

	"github.com/mew-app/contacts-sync/pkg/models"
)

// Well-known property labels. LabelAppleContactID holds the external
// system's stable key; it is written once at creation and never updated or
// deleted afterwards.
const (
	LabelAppleContactID = "appleContactId"
	LabelOrganization   = "organization"
	LabelNote           = "note"

	labelBasePhone = "phone"
	labelBaseEmail = "email"
)

// PropertyValue is one expected property of a contact: a resolved label and
// the raw source value.
type PropertyValue struct {
	Label string
	Value string
}

// DisplayName derives the text content of a contact's main node:
// "given family" when either part is present, the organization name as a
// fallback, and "Unnamed Contact" as a last resort.
func DisplayName(rec models.ExternalRecord) string {
	name := strings.TrimSpace(strings.TrimSpace(rec.GivenName) + " " + strings.TrimSpace(rec.FamilyName))
	if name != "" {
		return name
	}
	if org := strings.TrimSpace(rec.OrganizationName); org != "" {
		return org
	}
	return "Unnamed Contact"
}

// SanitizeLabel reduces an address-book item label to the form used inside
// property labels: the Apple "_$!<Home>!$_" wrapper is stripped, the rest is
// lowercased and reduced to [a-z0-9].
func SanitizeLabel(label string) string {
	label = strings.TrimPrefix(label, "_$!<")
	label = strings.TrimSuffix(label, ">!$_")
	label = strings.ToLower(label)
	var b strings.Builder
	for _, r := range label {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PropertyLabel builds the label of a list-valued property entry:
// "{base}_{sanitizedItemLabel}", or just the base when the item carries no
// usable label.
func PropertyLabel(base, itemLabel string) string {
	sanitized := SanitizeLabel(itemLabel)
	if sanitized == "" {
		return base
	}
	return base + "_" + sanitized
}

// RecordProperties flattens a record into its expected property set, in a
// stable order with appleContactId first. Entries with empty values are
// omitted, as is any entry whose label collides with an earlier one (the
// first occurrence wins).
func RecordProperties(rec models.ExternalRecord) []PropertyValue {
	props := []PropertyValue{{Label: LabelAppleContactID, Value: rec.Identifier}}
	seen := map[string]bool{LabelAppleContactID: true}

	add := func(label, value string) {
		if strings.TrimSpace(value) == "" || seen[label] {
			return
		}
		seen[label] = true
		props = append(props, PropertyValue{Label: label, Value: value})
	}

	for _, phone := range rec.PhoneNumbers {
		add(PropertyLabel(labelBasePhone, phone.Label), phone.Value)
	}
	for _, email := range rec.EmailAddresses {
		add(PropertyLabel(labelBaseEmail, email.Label), email.Value)
	}
	add(LabelOrganization, rec.OrganizationName)
	add(LabelNote, rec.Note)

	return props
}

// NormalizeValue prepares a property value for comparison. Email values
// compare case-insensitively after trimming; everything else compares as
// trimmed, case-sensitive text.
func NormalizeValue(label, value string) string {
	value = strings.TrimSpace(value)
	if label == labelBaseEmail || strings.HasPrefix(label, labelBaseEmail+"_") {
		return strings.ToLower(value)
	}
	return value
}

// PropertyOperations produces the primitive operations that create one new
// property slot from nothing: the value node, the edge relation from the
// parent with its canonical id pre-wired to the type relation, the edge's
// ordering entry, a fresh label node, the __type__ relation attaching it,
// and that relation's ordering entry.
//
// Every invocation generates fresh ids, including a new label node even when
// an identical label already exists elsewhere in the graph. That duplication
// matches the backend's observed usage and is harmless to the diff contract;
// callers must only invoke this when the slot does not already exist.
func PropertyOperations(parentID models.NodeID, label, value, authorID string, ts int64) []models.Operation {
	valueNodeID := models.NewNodeID()
	edgeID := models.NewRelationID()
	labelNodeID := models.NewNodeID()
	typeRelID := models.NewRelationID()

	valueNode := models.NewTextNode(valueNodeID, value, authorID, ts)
	valueNode.CanonicalRelationID = &edgeID

	edge := models.NewChildRelation(edgeID, parentID, valueNodeID, ts)
	edge.CanonicalRelationID = &typeRelID

	labelNode := models.NewTextNode(labelNodeID, label, authorID, ts)

	// The __type__ relation hangs off the edge relation itself, so its
	// fromId carries a relation id.
	typeRel := models.NewTypeRelation(typeRelID, models.NodeID(edgeID), labelNodeID, ts)

	return []models.Operation{
		models.AddNodeOp(valueNode),
		models.AddRelationOp(edge),
		models.AppendRelationListOp(parentID, edgeID),
		models.AddNodeOp(labelNode),
		models.AddRelationOp(typeRel),
		models.AppendRelationListOp(models.NodeID(edgeID), typeRelID),
	}
}

// UpdateOperation returns the single updateNode operation replacing a
// slot's value, or nil when the normalized values already match. The
// operation carries the slot node's full previous state; the sync endpoint
// rejects partial patches.
func UpdateOperation(slot PropertySlot, label, newValue string, ts int64) *models.Operation {
	if NormalizeValue(label, newValue) == NormalizeValue(label, slot.Value) {
		return nil
	}
	if slot.ValueNode == nil {
		// Value node never materialized; without oldProps no legal update
		// can be built.
		return nil
	}

	oldProps := slot.ValueNode.Props()
	newProps := slot.ValueNode.Props()
	newProps.Content = models.TextContent(newValue)
	newProps.UpdatedAt = ts

	op := models.UpdateNodeOp(slot.ValueNode.ID, oldProps, newProps)
	return &op
}
