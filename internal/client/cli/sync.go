package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/fieldsync/internal/client/api"
	"github.com/iudanet/fieldsync/internal/client/sync"
)

// SyncMode выбирает фазы цикла синхронизации
type SyncMode string

// Режимы синхронизации
const (
	SyncBoth SyncMode = "both"
	SyncPush SyncMode = "push"
	SyncPull SyncMode = "pull"
)

func (c *Cli) runSync(ctx context.Context, mode SyncMode) error {
	c.io.Println("=== Synchronization ===")
	c.io.Println()
	c.io.Println("Starting synchronization with server...")

	var (
		result sync.CycleResult
		err    error
	)
	switch mode {
	case SyncPush:
		result, err = c.app.Engine.Push(ctx)
	case SyncPull:
		result, err = c.app.Engine.Pull(ctx)
	default:
		result, err = c.app.Engine.ForceSync(ctx)
	}

	switch {
	case errors.Is(err, sync.ErrOffline):
		return errors.New("offline: changes stay pending until the next sync")
	case errors.Is(err, sync.ErrNoCredentials), errors.Is(err, api.ErrUnauthorized):
		return fmt.Errorf("synchronization failed: %w. Please run 'fieldsync login'", err)
	case err != nil:
		c.printResult(result)
		return fmt.Errorf("synchronization failed: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Synchronization completed successfully!")
	c.printResult(result)
	return nil
}

func (c *Cli) printResult(r sync.CycleResult) {
	c.io.Println()
	c.io.Printf("Pushed to server:   %d documents\n", r.Pushed)
	c.io.Printf("Pulled from server: %d documents\n", r.Pulled)
	c.io.Printf("Merged locally:     %d documents\n", r.Merged)
	if r.Failed > 0 {
		c.io.Printf("Failed (pending):   %d\n", r.Failed)
	}
	if r.Blocked > 0 {
		c.io.Printf("Blocked (conflict): %d\n", r.Blocked)
	}
	if r.Unreachable > 0 {
		c.io.Printf("Unreachable types:  %d\n", r.Unreachable)
	}
	if r.Conflicts > 0 {
		c.io.Println()
		c.io.Printf("⚠️  %d new conflict(s). Run 'fieldsync conflicts' to review them.\n", r.Conflicts)
	}
}
