package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mew-app/contacts-sync/pkg/models"
)

// DefaultChunkSize bounds both creation batches (records per transaction)
// and update/delete batches (operations per transaction). Chunking bounds
// the blast radius of a failed transaction; the backend's atomicity across
// a whole /sync call is unconfirmed.
const DefaultChunkSize = 50

// GraphClient is the write surface the engine submits through.
type GraphClient interface {
	SendBatchOperations(ctx context.Context, ops []models.Operation, txID string) error
	BatchAddContacts(ctx context.Context, records []models.ExternalRecord, parentID models.NodeID) (map[string]models.NodeID, error)
}

// Plan is the outcome of one reconciliation pass: records to create from
// scratch, and the flattened update/delete operations for everything else.
type Plan struct {
	Creations  []models.ExternalRecord
	Operations []models.Operation
}

// Empty reports whether the plan carries no work.
func (p *Plan) Empty() bool {
	return len(p.Creations) == 0 && len(p.Operations) == 0
}

// Engine computes per-record diffs and submits the resulting plan.
type Engine struct {
	client          GraphClient
	authorID        string
	log             zerolog.Logger
	recordChunkSize int
	opChunkSize     int
	now             func() time.Time
}

// EngineOption tweaks an Engine at construction time.
type EngineOption func(*Engine)

// WithChunkSizes overrides the record and operation chunk sizes.
func WithChunkSizes(records, operations int) EngineOption {
	return func(e *Engine) {
		if records > 0 {
			e.recordChunkSize = records
		}
		if operations > 0 {
			e.opChunkSize = operations
		}
	}
}

// WithClock overrides the engine's clock; tests pin it for stable
// timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(client GraphClient, authorID string, log zerolog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		client:          client,
		authorID:        authorID,
		log:             log.With().Str("component", "engine").Logger(),
		recordChunkSize: DefaultChunkSize,
		opChunkSize:     DefaultChunkSize,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile diffs the source records against the resolved existing state.
// Records whose identifier is unknown become creation candidates; known
// records are compared property by property; identifiers in removed that
// still exist in the graph become whole-contact deletions. Records without
// an identifier are skipped with a warning.
func (e *Engine) Reconcile(records []models.ExternalRecord, removed []string, existing map[string]*ExistingContact) *Plan {
	ts := e.now().UnixMilli()
	plan := &Plan{}

	for _, rec := range records {
		if strings.TrimSpace(rec.Identifier) == "" {
			e.log.Warn().Str("name", DisplayName(rec)).Msg("skipping record without identifier")
			continue
		}
		contact, ok := existing[rec.Identifier]
		if !ok {
			plan.Creations = append(plan.Creations, rec)
			continue
		}
		e.compare(rec, contact, ts, plan)
	}

	for _, id := range removed {
		contact, ok := existing[id]
		if !ok {
			continue
		}
		e.log.Info().Str("identifier", id).Str("nodeId", string(contact.MewID)).
			Msg("contact removed at source; deleting node")
		plan.Operations = append(plan.Operations, models.DeleteNodeOp(contact.MewID))
	}

	return plan
}

// compare appends the operations reconciling one known record to the plan.
func (e *Engine) compare(rec models.ExternalRecord, contact *ExistingContact, ts int64, plan *Plan) {
	if name := DisplayName(rec); name != contact.Name && contact.Node != nil {
		oldProps := contact.Node.Props()
		newProps := contact.Node.Props()
		newProps.Content = models.TextContent(name)
		newProps.UpdatedAt = ts
		plan.Operations = append(plan.Operations, models.UpdateNodeOp(contact.MewID, oldProps, newProps))
	}

	// Working copy of the slot map; handled slots are consumed, and
	// whatever remains at the end no longer exists at the source.
	working := make(map[string]PropertySlot, len(contact.Properties))
	for label, slot := range contact.Properties {
		working[label] = slot
	}
	// The identifier slot is written once at creation and never touched
	// again.
	delete(working, LabelAppleContactID)

	for _, pv := range RecordProperties(rec) {
		if pv.Label == LabelAppleContactID {
			continue
		}
		slot, ok := working[pv.Label]
		if !ok {
			plan.Operations = append(plan.Operations,
				PropertyOperations(contact.MewID, pv.Label, pv.Value, e.authorID, ts)...)
			continue
		}
		delete(working, pv.Label)
		if op := UpdateOperation(slot, pv.Label, pv.Value, ts); op != nil {
			plan.Operations = append(plan.Operations, *op)
		}
	}

	leftovers := make([]string, 0, len(working))
	for label := range working {
		leftovers = append(leftovers, label)
	}
	sort.Strings(leftovers)
	for _, label := range leftovers {
		plan.Operations = append(plan.Operations, models.DeleteNodeOp(working[label].ValueNodeID))
	}
}

// Submit applies the plan: creation batches first, then the flattened
// update/delete operations, both in bounded chunks submitted strictly
// sequentially. The first failed chunk aborts the rest of the pass; chunks
// already applied stay applied (no compensating rollback).
func (e *Engine) Submit(ctx context.Context, plan *Plan, parentID models.NodeID) error {
	for start := 0; start < len(plan.Creations); start += e.recordChunkSize {
		end := start + e.recordChunkSize
		if end > len(plan.Creations) {
			end = len(plan.Creations)
		}
		chunk := plan.Creations[start:end]
		created, err := e.client.BatchAddContacts(ctx, chunk, parentID)
		if err != nil {
			return fmt.Errorf("creating contacts %d-%d of %d: %w", start+1, end, len(plan.Creations), err)
		}
		e.log.Info().Int("created", len(created)).Int("remaining", len(plan.Creations)-end).
			Msg("created contact chunk")
	}

	for start := 0; start < len(plan.Operations); start += e.opChunkSize {
		end := start + e.opChunkSize
		if end > len(plan.Operations) {
			end = len(plan.Operations)
		}
		if err := e.client.SendBatchOperations(ctx, plan.Operations[start:end], ""); err != nil {
			return fmt.Errorf("submitting operations %d-%d of %d: %w", start+1, end, len(plan.Operations), err)
		}
	}

	if !plan.Empty() {
		e.log.Info().Int("creations", len(plan.Creations)).Int("operations", len(plan.Operations)).
			Msg("plan submitted")
	}
	return nil
}
