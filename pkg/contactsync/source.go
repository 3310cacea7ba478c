package contactsync

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mew-app/contacts-sync/pkg/models"
)

const (
	// sourceRestartDelay is how long Listen waits before respawning a source
	// process that exited.
	sourceRestartDelay = 5 * time.Second

	// sourceLineLimit bounds one NDJSON line. A full address book snapshot
	// arrives as a single line, so the limit is generous.
	sourceLineLimit = 64 * 1024 * 1024
)

// Listen spawns the source command and applies every snapshot message it
// emits on stdout, one JSON object per line. When the source exits, it is
// restarted after a short delay; the loop ends only when ctx is cancelled.
// Pending scheduler work is dropped on cancellation.
func (a *App) Listen(ctx context.Context, command string) error {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return fmt.Errorf("empty source command")
	}

	for {
		if err := ctx.Err(); err != nil {
			a.sched.Clear()
			return err
		}

		a.log.Info().Str("command", command).Msg("starting contact source")
		if err := a.runSource(ctx, argv); err != nil {
			if ctx.Err() != nil {
				a.sched.Clear()
				return ctx.Err()
			}
			a.log.Warn().Err(err).Dur("restartIn", sourceRestartDelay).
				Msg("contact source exited; restarting")
		}

		select {
		case <-time.After(sourceRestartDelay):
		case <-ctx.Done():
			a.sched.Clear()
			return ctx.Err()
		}
	}
}

// runSource runs one incarnation of the source process and consumes its
// stream until it ends. A malformed line is logged and skipped; a failed
// reconciliation pass is logged and the stream continues, since the next
// snapshot supersedes it.
func (a *App) runSource(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("opening source stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting source: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), sourceLineLimit)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var msg models.SourceMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			a.log.Warn().Err(err).Int("bytes", len(line)).Msg("skipping malformed source line")
			continue
		}
		if msg.Type != models.MessageTypeInitial && msg.Type != models.MessageTypeUpdate {
			a.log.Warn().Str("type", msg.Type).Msg("skipping source message of unknown type")
			continue
		}

		if err := a.RunPass(ctx, msg.Contacts, msg.DeletedContacts); err != nil {
			if ctx.Err() != nil {
				break
			}
			a.log.Error().Err(err).Str("type", msg.Type).
				Msg("reconciliation pass failed; waiting for next snapshot")
		}
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return fmt.Errorf("reading source stream: %w", err)
	}

	return cmd.Wait()
}
