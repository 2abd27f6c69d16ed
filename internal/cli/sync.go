package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/keepvault/internal/storage"
	"github.com/iudanet/keepvault/internal/storage/boltdb"
	vaultsync "github.com/iudanet/keepvault/internal/sync"
)

type syncParams struct {
	remote        string
	remoteInState bool
	list          bool
}

func (c *Cli) newSyncCommand() *cobra.Command {
	var p syncParams
	cmd := &cobra.Command{
		Use:   "sync <remote.kdbx>",
		Short: "Synchronize the database with a remote copy",
		Long: `Merges the remote copy into the local database and writes the result to both.
The remote copy is created when it does not exist yet.

With --remote-in-state the remote copy lives inside the state file instead of
the file system, which makes the state file a portable vault container.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if p.list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				p.remote = args[0]
			}
			return c.runSync(cmd.Context(), p)
		},
	}
	cmd.Flags().BoolVar(&p.remoteInState, "remote-in-state", false, "Keep the remote copy inside the state file")
	cmd.Flags().BoolVar(&p.list, "list", false, "List remote copies stored in the state file and exit")
	return cmd
}

func (c *Cli) runSync(ctx context.Context, p syncParams) error {
	state, err := boltdb.New(ctx, c.opts.StatePath)
	if err != nil {
		return fmt.Errorf("failed to open state: %w", err)
	}
	defer func() {
		if err := state.Close(); err != nil {
			c.logger.Error("failed to close state", "error", err)
		}
	}()

	if p.list {
		return c.listStored(ctx, state)
	}

	c.io.Println("=== Synchronization ===")
	c.io.Println()

	var remote storage.ByteStore = c.store
	if p.remoteInState {
		remote = state
	}
	svc := vaultsync.NewService(c.store, remote, state, c.status(), c.logger)

	last, err := svc.LastSync(ctx, c.opts.DBPath)
	if err != nil {
		return err
	}
	if last.IsZero() {
		c.io.Println("Last sync: never")
	} else {
		c.io.Printf("Last sync: %s\n", formatTime(last))
	}

	key, err := c.compositeKey(ctx, false)
	if err != nil {
		return err
	}

	result, err := svc.Sync(ctx, c.opts.DBPath, p.remote, key)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}

	c.io.Println()
	c.io.Printf("%s Synchronization completed successfully!\n", ok())
	c.io.Println()
	if result.Uploaded {
		c.io.Printf("Remote copy created: %s\n", highlight(p.remote))
		return nil
	}
	c.io.Printf("Added:     %d\n", result.Added)
	c.io.Printf("Updated:   %d\n", result.Updated)
	c.io.Printf("Deleted:   %d\n", result.Deleted)
	c.io.Printf("Relocated: %d\n", result.Relocated)
	if result.Reordered > 0 {
		c.io.Printf("Reordered: %d\n", result.Reordered)
	}
	if result.HistoryItems > 0 {
		c.io.Printf("History:   %d versions\n", result.HistoryItems)
	}
	return nil
}

func (c *Cli) listStored(ctx context.Context, state *boltdb.Storage) error {
	names, err := state.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list state: %w", err)
	}
	if len(names) == 0 {
		c.io.Println("No remote copies in the state file.")
		return nil
	}
	for _, name := range names {
		c.io.Println(name)
	}
	return nil
}
