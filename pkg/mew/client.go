// Package mew provides typed operations over the Mew graph API.
//
// [Client] covers the narrow REST surface the sync engine needs: layer
// reads (POST /layer), transactional operation batches (POST /sync), and
// the Auth0 client-credentials token exchange backing both. It is
// constructed once per process and passed by reference to the
// reconciliation components; there is no package-level instance.
//
// Every network call funnels through the request scheduler, which enforces
// the rate ceiling and batch pacing. Layer reads are additionally wrapped
// in an exponential-backoff retry; sync writes never are, because the
// backend's per-transaction idempotence is unconfirmed.
package mew

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/mew-app/contacts-sync/pkg/models"
	"github.com/mew-app/contacts-sync/pkg/reconcile"
	"github.com/mew-app/contacts-sync/pkg/scheduler"
)

const defaultRequestTimeout = 30 * time.Second

// Config carries everything the client needs to talk to the graph API on
// behalf of one user session.
type Config struct {
	// BaseURL is the graph API origin, without a trailing slash.
	BaseURL string
	// Auth0Domain, ClientID, ClientSecret and Audience drive the
	// client-credentials exchange. ClientID doubles as the clientId tag on
	// sync transactions.
	Auth0Domain  string
	ClientID     string
	ClientSecret string
	Audience     string
	// AuthorID is the owning user; every mutation carries it.
	AuthorID string
	// Timeout bounds each HTTP request. Default 30s.
	Timeout time.Duration
}

// Client is the typed graph API client. It is safe for use by the
// scheduler's concurrent workers; the only shared mutable state is the
// token cache, which is mutex-guarded.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sched      *scheduler.Scheduler
	readRetry  scheduler.Retryer
	creds      *clientcredentials.Config
	log        zerolog.Logger

	tokenMu        sync.Mutex
	token          string
	tokenFetchedAt time.Time
}

// NewClient builds a client routing all traffic through sched.
func NewClient(cfg Config, sched *scheduler.Scheduler, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		sched:      sched,
		readRetry:  noAuthRetry{scheduler.NewExponentialBackoffRetryer()},
		creds:      newCredentials(cfg),
		log:        log.With().Str("component", "mew").Logger(),
	}
}

// noAuthRetry stops retrying as soon as the failure is an authentication
// error; a broken credential will not heal between attempts.
type noAuthRetry struct {
	scheduler.Retryer
}

func (n noAuthRetry) NextDelay(attempt int, lastErr error) (time.Duration, bool) {
	var authErr *AuthenticationError
	if errors.As(lastErr, &authErr) {
		return 0, false
	}
	return n.Retryer.NextDelay(attempt, lastErr)
}

// do schedules one POST and waits for its result. Cancellation while queued
// returns ctx.Err(); the queued call itself is not pulled back.
func (c *Client) do(ctx context.Context, path string, body, target any) error {
	result := c.sched.Enqueue(func() error {
		return c.post(ctx, path, body, target)
	})
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post performs the HTTP call itself: bearer token, JSON body, JSON
// response. Non-2xx responses become *APIError with the raw body attached.
func (c *Client) post(ctx context.Context, path string, body, target any) error {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return &APIError{Endpoint: path, Status: resp.StatusCode, Body: string(raw)}
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	return nil
}

type layerRequest struct {
	ObjectIDs []string `json:"objectIds"`
}

type layerResponse struct {
	Data models.LayerData `json:"data"`
}

// GetLayerData fetches the layer snapshot for a mixed set of node and
// relation ids. The response carries whatever the backend has for those ids
// and anything it chooses to include incidentally; callers must not assume
// closure. The call is retried with backoff, being an idempotent read.
func (c *Client) GetLayerData(ctx context.Context, objectIDs []string) (*models.LayerData, error) {
	var out *models.LayerData
	err := scheduler.Retry(ctx, c.readRetry, func() error {
		var resp layerResponse
		if err := c.do(ctx, "/layer", layerRequest{ObjectIDs: objectIDs}, &resp); err != nil {
			return err
		}
		out = &resp.Data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("layer fetch of %d ids failed: %w", len(objectIDs), err)
	}
	if out.NodesByID == nil {
		out.NodesByID = make(map[models.NodeID]*models.Node)
	}
	if out.RelationsByID == nil {
		out.RelationsByID = make(map[models.RelationID]*models.Relation)
	}
	return out, nil
}

type syncRequest struct {
	ClientID      string             `json:"clientId"`
	UserID        string             `json:"userId"`
	TransactionID string             `json:"transactionId"`
	Updates       []models.Operation `json:"updates"`
}

// SendBatchOperations submits a pre-built operation list as one
// transaction. An empty txID gets a fresh transaction id.
func (c *Client) SendBatchOperations(ctx context.Context, ops []models.Operation, txID string) error {
	if len(ops) == 0 {
		return nil
	}
	if txID == "" {
		txID = uuid.NewString()
	}
	req := syncRequest{
		ClientID:      c.cfg.ClientID,
		UserID:        c.cfg.AuthorID,
		TransactionID: txID,
		Updates:       ops,
	}
	if err := c.do(ctx, "/sync", req, nil); err != nil {
		c.log.Error().Err(err).Str("transactionId", txID).Int("operations", len(ops)).
			Msg("sync transaction failed")
		return err
	}
	return nil
}

// AddNode creates a text node under parentID: the node itself, the child
// relation, and the relation's ordering entry, in one transaction. The new
// node's id is returned.
func (c *Client) AddNode(ctx context.Context, text string, parentID models.NodeID) (models.NodeID, error) {
	ts := time.Now().UnixMilli()
	nodeID := models.NewNodeID()
	relID := models.NewRelationID()

	node := models.NewTextNode(nodeID, text, c.cfg.AuthorID, ts)
	node.CanonicalRelationID = &relID

	ops := []models.Operation{
		models.AddNodeOp(node),
		models.AddRelationOp(models.NewChildRelation(relID, parentID, nodeID, ts)),
		models.AppendRelationListOp(parentID, relID),
	}
	if err := c.SendBatchOperations(ctx, ops, ""); err != nil {
		return "", &NodeOperationError{NodeID: nodeID, Err: err}
	}
	return nodeID, nil
}

// UpdateNode replaces a node's mutable state. Both snapshots must be fully
// populated; the backend rejects partial patches.
func (c *Client) UpdateNode(ctx context.Context, id models.NodeID, oldProps, newProps *models.NodeProps) error {
	ops := []models.Operation{models.UpdateNodeOp(id, oldProps, newProps)}
	if err := c.SendBatchOperations(ctx, ops, ""); err != nil {
		return &NodeOperationError{NodeID: id, Err: err}
	}
	return nil
}

// DeleteNode removes a node. Relations pointing at it are not cleaned up;
// orphaned relations and label nodes may remain.
func (c *Client) DeleteNode(ctx context.Context, id models.NodeID) error {
	ops := []models.Operation{models.DeleteNodeOp(id)}
	if err := c.SendBatchOperations(ctx, ops, ""); err != nil {
		return &NodeOperationError{NodeID: id, Err: err}
	}
	return nil
}

// FolderChildren returns the ids of folderID's direct children, in a stable
// order.
func (c *Client) FolderChildren(ctx context.Context, folderID models.NodeID) ([]models.NodeID, error) {
	ld, err := c.GetLayerData(ctx, []string{string(folderID)})
	if err != nil {
		return nil, err
	}
	var out []models.NodeID
	for _, rel := range ld.RelationsByID {
		if rel.FromID == folderID && rel.RelationTypeID == models.RelationTypeChild {
			out = append(out, rel.ToID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// EnsureFolder returns the id of the child of rootID whose text content is
// name, creating the folder node when no such child exists.
func (c *Client) EnsureFolder(ctx context.Context, rootID models.NodeID, name string) (models.NodeID, error) {
	children, err := c.FolderChildren(ctx, rootID)
	if err != nil {
		return "", err
	}
	if len(children) > 0 {
		ids := make([]string, len(children))
		for i, id := range children {
			ids[i] = string(id)
		}
		ld, err := c.GetLayerData(ctx, ids)
		if err != nil {
			return "", err
		}
		for _, id := range children {
			if node, ok := ld.NodesByID[id]; ok && node.Text() == name {
				return id, nil
			}
		}
	}

	c.log.Info().Str("folder", name).Msg("folder not found; creating")
	return c.AddNode(ctx, name, rootID)
}

// BatchAddContacts synthesizes the full creation sequence for each record
// (main node, child relation, ordering entry, and one property-slot sequence
// per non-empty field with appleContactId first) and submits all of it as
// one transaction. A failure fails the whole chunk; bounding chunk size is
// the caller's job. Returns the new main node id per source identifier.
func (c *Client) BatchAddContacts(ctx context.Context, records []models.ExternalRecord, parentID models.NodeID) (map[string]models.NodeID, error) {
	created := make(map[string]models.NodeID, len(records))
	if len(records) == 0 {
		return created, nil
	}

	ts := time.Now().UnixMilli()
	var ops []models.Operation
	for _, rec := range records {
		nodeID := models.NewNodeID()
		relID := models.NewRelationID()

		node := models.NewTextNode(nodeID, reconcile.DisplayName(rec), c.cfg.AuthorID, ts)
		node.CanonicalRelationID = &relID

		ops = append(ops,
			models.AddNodeOp(node),
			models.AddRelationOp(models.NewChildRelation(relID, parentID, nodeID, ts)),
			models.AppendRelationListOp(parentID, relID),
		)
		for _, pv := range reconcile.RecordProperties(rec) {
			ops = append(ops, reconcile.PropertyOperations(nodeID, pv.Label, pv.Value, c.cfg.AuthorID, ts)...)
		}
		created[rec.Identifier] = nodeID
	}

	txID := uuid.NewString()
	if err := c.SendBatchOperations(ctx, ops, txID); err != nil {
		return nil, fmt.Errorf("batch add of %d contacts failed: %w", len(records), err)
	}
	c.log.Debug().Int("contacts", len(records)).Int("operations", len(ops)).
		Str("transactionId", txID).Msg("batch added contacts")
	return created, nil
}
