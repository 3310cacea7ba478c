package contactsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MEW_BASE_URL", "https://api.mew.example")
	t.Setenv("MEW_USER_ROOT_URL", "https://mew.example/g/user-root-auth0|u1")
	t.Setenv("AUTH0_DOMAIN", "tenant.auth0.example")
	t.Setenv("AUTH0_CLIENT_ID", "client-1")
	t.Setenv("AUTH0_CLIENT_SECRET", "secret")
	t.Setenv("AUTH0_AUDIENCE", "https://api.mew.example")
}

func TestParse(t *testing.T) {
	t.Run("requires a subcommand", func(t *testing.T) {
		setTestEnv(t)
		_, _, err := Parse(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "subcommand required")
	})

	t.Run("rejects unknown commands", func(t *testing.T) {
		setTestEnv(t)
		_, _, err := Parse([]string{"frobnicate"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown command")
	})

	t.Run("sync with defaults", func(t *testing.T) {
		setTestEnv(t)
		cmd, cfg, err := Parse([]string{"sync"})
		require.NoError(t, err)
		assert.IsType(t, &SyncCommand{}, cmd)
		assert.Equal(t, "Contacts", cfg.ContactsFolder)
		assert.Equal(t, float64(50), cfg.RateLimit)
		assert.Equal(t, 10, cfg.BatchSize)
		assert.Equal(t, 50, cfg.ChunkSize)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("flag overrides", func(t *testing.T) {
		setTestEnv(t)
		_, cfg, err := Parse([]string{"-folder", "Address Book", "-log-level", "debug", "sync"})
		require.NoError(t, err)
		assert.Equal(t, "Address Book", cfg.ContactsFolder)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("listen requires a source command", func(t *testing.T) {
		setTestEnv(t)
		_, _, err := Parse([]string{"listen"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "source command")
	})

	t.Run("listen takes the source from the environment", func(t *testing.T) {
		setTestEnv(t)
		t.Setenv("SOURCE_COMMAND", "python3 extract.py --stream")
		cmd, _, err := Parse([]string{"listen"})
		require.NoError(t, err)
		lc, ok := cmd.(*ListenCommand)
		require.True(t, ok)
		assert.Equal(t, "python3 extract.py --stream", lc.SourceCommand)
	})

	t.Run("missing required variables fail validation", func(t *testing.T) {
		setTestEnv(t)
		t.Setenv("AUTH0_CLIENT_SECRET", "")
		_, _, err := Parse([]string{"sync"})
		require.Error(t, err)
	})
}
