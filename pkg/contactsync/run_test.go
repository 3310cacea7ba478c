package contactsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mew-app/contacts-sync/pkg/models"
)

func TestDecodeSnapshot(t *testing.T) {
	t.Run("full source message", func(t *testing.T) {
		raw := []byte(`{"type":"update","contacts":[{"identifier":"ID-1","givenName":"Ada"}],"deleted_contacts":["ID-2"]}`)
		msg, err := decodeSnapshot(raw)
		require.NoError(t, err)
		assert.Equal(t, models.MessageTypeUpdate, msg.Type)
		require.Len(t, msg.Contacts, 1)
		assert.Equal(t, "ID-1", msg.Contacts[0].Identifier)
		assert.Equal(t, []string{"ID-2"}, msg.DeletedContacts)
	})

	t.Run("bare record array becomes an initial message", func(t *testing.T) {
		raw := []byte(`[{"identifier":"ID-1"},{"identifier":"ID-2"}]`)
		msg, err := decodeSnapshot(raw)
		require.NoError(t, err)
		assert.Equal(t, models.MessageTypeInitial, msg.Type)
		assert.Len(t, msg.Contacts, 2)
		assert.Empty(t, msg.DeletedContacts)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := decodeSnapshot([]byte(`not json`))
		require.Error(t, err)
	})
}

func TestNewApp(t *testing.T) {
	base := func() *Config {
		return &Config{
			MewBaseURL:     "https://api.mew.example",
			MewUserRootURL: "https://mew.example/g/user-root-auth0|u1",
			ContactsFolder: "Contacts",
			RateLimit:      50,
			BatchSize:      10,
			ChunkSize:      50,
			LogLevel:       "info",
		}
	}

	t.Run("derives identity from the user root URL", func(t *testing.T) {
		app, err := New(base())
		require.NoError(t, err)
		defer app.Close()
		assert.Equal(t, models.NodeID("user-root-auth0|u1"), app.rootNodeID)
		assert.Equal(t, "auth0|u1", app.authorID)
	})

	t.Run("rejects malformed user root URLs", func(t *testing.T) {
		cfg := base()
		cfg.MewUserRootURL = "https://mew.example/g/not-a-root"
		_, err := New(cfg)
		require.Error(t, err)
	})

	t.Run("rejects unknown log levels", func(t *testing.T) {
		cfg := base()
		cfg.LogLevel = "verbose"
		_, err := New(cfg)
		require.Error(t, err)
	})
}
