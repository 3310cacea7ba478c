package contactsync

// Command represents a parsed subcommand with its options.
// Implementations are executed by Main via the App.
type Command interface {
	// commandName returns the subcommand string, for error messages.
	commandName() string
}

// SyncCommand performs a single reconciliation pass: the snapshot is read
// from standard input as JSON and applied to the remote graph.
type SyncCommand struct{}

func (*SyncCommand) commandName() string { return "sync" }

// ListenCommand spawns the configured source command and applies every
// snapshot it emits, restarting the source if it exits.
type ListenCommand struct {
	// SourceCommand overrides Config.SourceCommand when non-empty.
	SourceCommand string
}

func (*ListenCommand) commandName() string { return "listen" }
