package contactsync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mew-app/contacts-sync/pkg/models"
)

// RunPass executes one full reconciliation pass against the remote graph:
// ensure the contacts folder exists, resolve the current state of its
// children, diff the snapshot against it, and submit the resulting plan.
func (a *App) RunPass(ctx context.Context, records []models.ExternalRecord, removed []string) error {
	folderID, err := a.client.EnsureFolder(ctx, a.rootNodeID, a.cfg.ContactsFolder)
	if err != nil {
		return fmt.Errorf("resolving contacts folder %q: %w", a.cfg.ContactsFolder, err)
	}

	children, err := a.client.FolderChildren(ctx, folderID)
	if err != nil {
		return fmt.Errorf("listing contacts folder: %w", err)
	}

	existing := a.resolver.ResolveExisting(ctx, children)
	a.log.Info().Int("source", len(records)).Int("existing", len(existing)).
		Int("removed", len(removed)).Msg("starting reconciliation pass")

	plan := a.engine.Reconcile(records, removed, existing)
	if plan.Empty() {
		a.log.Info().Msg("graph already in sync")
		return nil
	}
	return a.engine.Submit(ctx, plan, folderID)
}

// SyncOnce reads a single snapshot from r and applies it. The input is
// either a full source message or, for convenience, a bare JSON array of
// records, which is treated as an initial snapshot.
func (a *App) SyncOnce(ctx context.Context, r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}

	msg, err := decodeSnapshot(raw)
	if err != nil {
		return err
	}
	return a.RunPass(ctx, msg.Contacts, msg.DeletedContacts)
}

// decodeSnapshot accepts either a SourceMessage object or a bare record
// array.
func decodeSnapshot(raw []byte) (*models.SourceMessage, error) {
	var msg models.SourceMessage
	if err := json.Unmarshal(raw, &msg); err == nil && msg.Type != "" {
		return &msg, nil
	}

	var records []models.ExternalRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("snapshot is neither a source message nor a record array: %w", err)
	}
	return &models.SourceMessage{Type: models.MessageTypeInitial, Contacts: records}, nil
}
