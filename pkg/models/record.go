package models

// LabeledValue is one entry of a contact's phone or email list. Label
// carries the address book's raw label (possibly the Apple "_$!<Home>!$_"
// wrapper form, possibly empty).
type LabeledValue struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ExternalRecord is one contact as emitted by the address-book extractor.
// Identifier is the external system's stable key; it is preserved in the
// graph as the non-deletable appleContactId property.
type ExternalRecord struct {
	Identifier       string         `json:"identifier"`
	GivenName        string         `json:"givenName"`
	FamilyName       string         `json:"familyName"`
	OrganizationName string         `json:"organizationName"`
	PhoneNumbers     []LabeledValue `json:"phoneNumbers"`
	EmailAddresses   []LabeledValue `json:"emailAddresses"`
	Note             string         `json:"note"`
}

// Source message types. An initial message carries the full contact set at
// startup; updates carry the full set again after a change notification,
// plus any explicitly deleted identifiers.
const (
	MessageTypeInitial = "initial"
	MessageTypeUpdate  = "update"
)

// SourceMessage is one newline-delimited JSON message on the extractor's
// stdout. Each message is one reconciliation trigger.
type SourceMessage struct {
	Type            string           `json:"type"`
	Contacts        []ExternalRecord `json:"contacts"`
	DeletedContacts []string         `json:"deleted_contacts"`
}
