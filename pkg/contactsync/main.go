package contactsync

import (
	"context"
	"fmt"
	"os"
)

// Main is the entry point for the contacts-sync application. It takes a
// context for cancellation and the command line arguments (without the
// program name), then executes the selected command. It can be called
// directly from tests without building the binary.
//
// # Command Line Usage
//
//	get-contacts | contacts-sync sync      # apply one snapshot from stdin
//	contacts-sync listen                   # stream snapshots from SOURCE_COMMAND
//	contacts-sync -source "..." listen     # stream from an explicit command
//
// # Environment Variables
//
//	MEW_BASE_URL         - graph API origin (required)
//	MEW_USER_ROOT_URL    - shareable user-root URL (required)
//	AUTH0_DOMAIN         - Auth0 tenant domain (required)
//	AUTH0_CLIENT_ID      - client-credentials client id (required)
//	AUTH0_CLIENT_SECRET  - client-credentials secret (required)
//	AUTH0_AUDIENCE       - API audience for the token exchange (required)
//	CONTACTS_FOLDER      - folder under the user root (default: Contacts)
//	SOURCE_COMMAND       - extractor command for listen mode
//	RATE_LIMIT           - requests per second ceiling (default: 50)
//	BATCH_SIZE           - concurrent requests per batch (default: 10)
//	CHUNK_SIZE           - records/operations per transaction (default: 50)
//	LOG_LEVEL            - trace, debug, info, warn, error (default: info)
func Main(ctx context.Context, args []string) error {
	cmd, config, err := Parse(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	app, err := New(config)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	switch c := cmd.(type) {
	case *SyncCommand:
		if err := app.SyncOnce(ctx, os.Stdin); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
	case *ListenCommand:
		if err := app.Listen(ctx, c.SourceCommand); err != nil && ctx.Err() == nil {
			return fmt.Errorf("listen failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}

	return nil
}
