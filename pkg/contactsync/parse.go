package contactsync

import (
	"flag"
	"fmt"
)

// Parse parses command line arguments and returns the command to execute,
// the application configuration, and any error that occurred.
// Configuration comes from the environment; flags only carry per-invocation
// overrides.
func Parse(args []string) (Command, *Config, error) {
	flagSet := flag.NewFlagSet("contacts-sync", flag.ContinueOnError)

	var (
		source   = flagSet.String("source", "", "Source command to spawn in listen mode (overrides SOURCE_COMMAND)")
		folder   = flagSet.String("folder", "", "Contacts folder name (overrides CONTACTS_FOLDER)")
		logLevel = flagSet.String("log-level", "", "Log level: trace, debug, info, warn, error")
	)

	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}

	remainingArgs := flagSet.Args()
	if len(remainingArgs) == 0 {
		return nil, nil, fmt.Errorf(`subcommand required

Usage: contacts-sync [flags] <command>

Commands:
  sync      Apply one contact snapshot read from stdin
  listen    Spawn the source command and apply every snapshot it emits

Examples:
  get-contacts | contacts-sync sync
  contacts-sync listen
  contacts-sync -source "python3 get_contacts.py --stream" listen
  contacts-sync -folder "Address Book" sync`)
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if *folder != "" {
		config.ContactsFolder = *folder
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}

	var cmd Command
	switch remainingArgs[0] {
	case "sync":
		cmd = &SyncCommand{}
	case "listen":
		lc := &ListenCommand{SourceCommand: *source}
		if lc.SourceCommand == "" {
			lc.SourceCommand = config.SourceCommand
		}
		if lc.SourceCommand == "" {
			return nil, nil, fmt.Errorf("listen requires a source command (-source flag or SOURCE_COMMAND)")
		}
		cmd = lc
	default:
		return nil, nil, fmt.Errorf("unknown command: %s\n\nValid commands: sync, listen", remainingArgs[0])
	}

	return cmd, config, nil
}
