package mew

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mew-app/contacts-sync/pkg/models"
	"github.com/mew-app/contacts-sync/pkg/scheduler"
)

type fakeBackend struct {
	tokenCalls atomic.Int64
	layerData  models.LayerData
	layerFails atomic.Int64 // remaining /layer calls to fail with 500

	syncRequests chan []byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		layerData:    models.LayerData{},
		syncRequests: make(chan []byte, 16),
	}
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":86400}`))
	})
	mux.HandleFunc("/layer", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.layerFails.Load() > 0 {
			f.layerFails.Add(-1)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": f.layerData})
	})
	mux.HandleFunc("/sync", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.syncRequests <- body
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newTestClient(t *testing.T, backend *fakeBackend) *Client {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	sched := scheduler.New(scheduler.Options{RateLimit: 1000, BatchDelay: time.Millisecond}, zerolog.Nop())
	c := NewClient(Config{
		BaseURL:      srv.URL,
		Auth0Domain:  "unused.example",
		ClientID:     "client-1",
		ClientSecret: "secret",
		Audience:     "https://api.mew.example",
		AuthorID:     "auth0|user1",
	}, sched, zerolog.Nop())
	c.creds.TokenURL = srv.URL + "/oauth/token"
	return c
}

func TestAccessTokenCaching(t *testing.T) {
	backend := newFakeBackend()
	c := newTestClient(t, backend)
	ctx := context.Background()

	tok, err := c.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test-token", tok)
	assert.Equal(t, int64(1), backend.tokenCalls.Load())

	// Within the cache TTL the token is reused.
	_, err = c.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), backend.tokenCalls.Load())

	// Aging the cache past the TTL forces a fresh exchange.
	c.tokenMu.Lock()
	c.tokenFetchedAt = time.Now().Add(-5 * time.Minute)
	c.tokenMu.Unlock()

	_, err = c.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), backend.tokenCalls.Load())
}

func TestAccessTokenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"access_denied"}`))
	}))
	defer srv.Close()

	sched := scheduler.New(scheduler.Options{RateLimit: 1000}, zerolog.Nop())
	c := NewClient(Config{BaseURL: srv.URL, Auth0Domain: "unused.example"}, sched, zerolog.Nop())
	c.creds.TokenURL = srv.URL + "/oauth/token"

	_, err := c.AccessToken(context.Background())
	require.Error(t, err)
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
}

func TestGetLayerData(t *testing.T) {
	t.Run("decodes nodes and relations", func(t *testing.T) {
		backend := newFakeBackend()
		backend.layerData = models.LayerData{
			NodesByID: map[models.NodeID]*models.Node{
				"n1": {ID: "n1", Content: models.TextContent("Ada Lovelace")},
			},
			RelationsByID: map[models.RelationID]*models.Relation{
				"r1": {ID: "r1", FromID: "folder", ToID: "n1", RelationTypeID: models.RelationTypeChild},
			},
		}
		c := newTestClient(t, backend)

		ld, err := c.GetLayerData(context.Background(), []string{"folder"})
		require.NoError(t, err)
		require.True(t, ld.HasNode("n1"))
		assert.Equal(t, "Ada Lovelace", ld.NodesByID["n1"].Text())
		require.True(t, ld.HasRelation("r1"))
	})

	t.Run("retries transient failures", func(t *testing.T) {
		backend := newFakeBackend()
		backend.layerFails.Store(2)
		c := newTestClient(t, backend)
		c.readRetry = noAuthRetry{&scheduler.ExponentialBackoffRetryer{
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1,
			MaxRetries:   3,
		}}

		_, err := c.GetLayerData(context.Background(), []string{"folder"})
		require.NoError(t, err)
	})

	t.Run("gives up after exhausting retries", func(t *testing.T) {
		backend := newFakeBackend()
		backend.layerFails.Store(10)
		c := newTestClient(t, backend)
		c.readRetry = noAuthRetry{&scheduler.ExponentialBackoffRetryer{
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1,
			MaxRetries:   2,
		}}

		_, err := c.GetLayerData(context.Background(), []string{"folder"})
		require.Error(t, err)
		var apiErr *APIError
		assert.ErrorAs(t, err, &apiErr)
	})
}

func TestSendBatchOperations(t *testing.T) {
	t.Run("empty batch is a no-op", func(t *testing.T) {
		backend := newFakeBackend()
		c := newTestClient(t, backend)
		require.NoError(t, c.SendBatchOperations(context.Background(), nil, ""))
		assert.Empty(t, backend.syncRequests)
	})

	t.Run("carries identity and transaction id", func(t *testing.T) {
		backend := newFakeBackend()
		c := newTestClient(t, backend)

		ops := []models.Operation{models.DeleteNodeOp("n1")}
		require.NoError(t, c.SendBatchOperations(context.Background(), ops, "tx-1"))

		var req struct {
			ClientID      string             `json:"clientId"`
			UserID        string             `json:"userId"`
			TransactionID string             `json:"transactionId"`
			Updates       []models.Operation `json:"updates"`
		}
		require.NoError(t, json.Unmarshal(<-backend.syncRequests, &req))
		assert.Equal(t, "client-1", req.ClientID)
		assert.Equal(t, "auth0|user1", req.UserID)
		assert.Equal(t, "tx-1", req.TransactionID)
		require.Len(t, req.Updates, 1)
		assert.Equal(t, models.OpDeleteNode, req.Updates[0].Operation)
		assert.Equal(t, models.NodeID("n1"), req.Updates[0].NodeID)
	})
}

func TestEnsureFolder(t *testing.T) {
	t.Run("finds existing folder by name", func(t *testing.T) {
		backend := newFakeBackend()
		backend.layerData = models.LayerData{
			NodesByID: map[models.NodeID]*models.Node{
				"f1": {ID: "f1", Content: models.TextContent("Contacts")},
			},
			RelationsByID: map[models.RelationID]*models.Relation{
				"r1": {ID: "r1", FromID: "root", ToID: "f1", RelationTypeID: models.RelationTypeChild},
			},
		}
		c := newTestClient(t, backend)

		id, err := c.EnsureFolder(context.Background(), "root", "Contacts")
		require.NoError(t, err)
		assert.Equal(t, models.NodeID("f1"), id)
		assert.Empty(t, backend.syncRequests)
	})

	t.Run("creates missing folder", func(t *testing.T) {
		backend := newFakeBackend()
		c := newTestClient(t, backend)

		id, err := c.EnsureFolder(context.Background(), "root", "Contacts")
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		var req struct {
			Updates []models.Operation `json:"updates"`
		}
		require.NoError(t, json.Unmarshal(<-backend.syncRequests, &req))
		require.Len(t, req.Updates, 3)
		assert.Equal(t, models.OpAddNode, req.Updates[0].Operation)
		assert.Equal(t, "Contacts", req.Updates[0].Node.Text())
		assert.Equal(t, models.OpAddRelation, req.Updates[1].Operation)
		assert.Equal(t, models.OpUpdateRelationList, req.Updates[2].Operation)
	})
}

func TestBatchAddContacts(t *testing.T) {
	backend := newFakeBackend()
	c := newTestClient(t, backend)

	records := []models.ExternalRecord{{
		Identifier: "ABC-1",
		GivenName:  "Ada",
		FamilyName: "Lovelace",
		EmailAddresses: []models.LabeledValue{
			{Label: "_$!<Work>!$_", Value: "ada@example.com"},
		},
	}}

	created, err := c.BatchAddContacts(context.Background(), records, "folder")
	require.NoError(t, err)
	require.Contains(t, created, "ABC-1")

	var req struct {
		TransactionID string             `json:"transactionId"`
		Updates       []models.Operation `json:"updates"`
	}
	require.NoError(t, json.Unmarshal(<-backend.syncRequests, &req))
	assert.NotEmpty(t, req.TransactionID)

	// 3 ops for the main node, then 6 per property (appleContactId and the
	// work email).
	require.Len(t, req.Updates, 3+2*6)
	assert.Equal(t, "Ada Lovelace", req.Updates[0].Node.Text())
	assert.Equal(t, created["ABC-1"], req.Updates[0].Node.ID)

	var labels []string
	for _, op := range req.Updates {
		if op.Operation == models.OpAddNode && op.Node.ID != created["ABC-1"] {
			labels = append(labels, op.Node.Text())
		}
	}
	assert.Contains(t, labels, "appleContactId")
	assert.Contains(t, labels, "ABC-1")
	assert.Contains(t, labels, "email_work")
	assert.Contains(t, labels, "ada@example.com")
}
