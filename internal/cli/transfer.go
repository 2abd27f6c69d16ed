package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/iudanet/keepvault/internal/kdbx"
	"github.com/iudanet/keepvault/internal/keys"
	"github.com/iudanet/keepvault/internal/merge"
	"github.com/iudanet/keepvault/internal/models"
	"github.com/iudanet/keepvault/internal/storage"
)

// modeValue adapts merge.Mode to pflag.Value so that --mode is validated
// while flags are parsed.
type modeValue struct {
	mode *merge.Mode
}

var _ pflag.Value = modeValue{}

func (v modeValue) String() string {
	if v.mode == nil {
		return ""
	}
	return v.mode.String()
}

func (v modeValue) Set(s string) error {
	m, err := merge.ParseMode(s)
	if err != nil {
		return err
	}
	*v.mode = m
	return nil
}

func (v modeValue) Type() string { return "mode" }

func addModeFlag(fs *pflag.FlagSet, mode *merge.Mode, def merge.Mode) {
	*mode = def
	fs.Var(modeValue{mode: mode}, "mode",
		"Merge mode: overwrite, keep, newer, new-uuids or sync")
}

func (c *Cli) printMergeResult(res *merge.Result) {
	if !res.Changed() {
		c.io.Println("Nothing to merge, databases are identical.")
		return
	}
	c.io.Printf("Added:     %d groups, %d entries\n", res.GroupsAdded, res.EntriesAdded)
	c.io.Printf("Updated:   %d groups, %d entries\n", res.GroupsUpdated, res.EntriesUpdated)
	c.io.Printf("Deleted:   %d\n", res.Deleted)
	c.io.Printf("Relocated: %d\n", res.Relocated)
	c.io.Printf("Reordered: %d\n", res.Reordered)
	if res.HistoryAdded > 0 {
		c.io.Printf("History:   %d versions added\n", res.HistoryAdded)
	}
	if res.DuplicatesFixed > 0 {
		c.io.Printf("%s %d duplicate identifiers replaced\n", warning("!"), res.DuplicatesFixed)
	}
}

func (c *Cli) newMergeCommand() *cobra.Command {
	var (
		mode      merge.Mode
		sourceKey string
	)
	cmd := &cobra.Command{
		Use:   "merge <source.kdbx>",
		Short: "Merge another database into this one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMerge(cmd.Context(), args[0], mode, sourceKey)
		},
	}
	addModeFlag(cmd.Flags(), &mode, merge.Synchronize)
	cmd.Flags().StringVar(&sourceKey, "source-key-file", "", "Key file of the source database, when it differs")
	return cmd
}

func (c *Cli) runMerge(ctx context.Context, sourcePath string, mode merge.Mode, sourceKeyFile string) error {
	db, err := c.openDatabase(ctx, true)
	if err != nil {
		return err
	}
	defer c.closeDatabase(ctx, db)

	key := db.Key
	if sourceKeyFile != "" {
		if key, err = c.sourceKey(ctx, sourceKeyFile); err != nil {
			return err
		}
	}

	src, err := kdbx.Open(ctx, c.store, sourcePath, key, kdbx.OpenOptions{
		Status:     c.status(),
		Logger:     c.logger,
		RepairMode: c.opts.Repair,
	})
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}

	res, err := db.MergeIn(src.Database, mode, c.status())
	if err != nil {
		return err
	}
	if res.Changed() {
		if err := c.save(ctx, db); err != nil {
			return err
		}
	}

	c.io.Printf("%s Merged %s (%s)\n", ok(), highlight(sourcePath), mode)
	c.printMergeResult(res)
	return nil
}

// sourceKey builds a key from the master password and another key file.
func (c *Cli) sourceKey(ctx context.Context, keyFile string) (*keys.CompositeKey, error) {
	password, err := c.masterPassword(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get master password: %w", err)
	}
	return c.buildKey(ctx, password, keyFile)
}

func (c *Cli) newExportCommand() *cobra.Command {
	var entries []string
	cmd := &cobra.Command{
		Use:   "export <file.xml>",
		Short: "Export the database as unencrypted XML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd.Context(), args[0], entries)
		},
	}
	cmd.Flags().StringArrayVar(&entries, "entry", nil, "Export only this entry (id or title), repeatable")
	return cmd
}

func (c *Cli) runExport(ctx context.Context, path string, refs []string) error {
	db, err := c.openDatabase(ctx, false)
	if err != nil {
		return err
	}
	defer c.closeDatabase(ctx, db)

	var selected []*models.Entry
	for _, ref := range refs {
		e, err := findEntry(db.Database, ref)
		if err != nil {
			return err
		}
		selected = append(selected, e)
	}

	tx, err := storage.BeginTransaction(ctx, c.store, path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := db.Export(tx.Writer(), selected); err != nil {
		if rerr := tx.Rollback(ctx); rerr != nil {
			c.logger.Warn("failed to remove partial export", "path", path, "error", rerr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	c.io.Printf("%s Exported to %s\n", ok(), highlight(path))
	c.io.Println(warning("Warning: the exported file is NOT encrypted. Delete it when no longer needed."))
	return nil
}

func (c *Cli) newImportCommand() *cobra.Command {
	var mode merge.Mode
	cmd := &cobra.Command{
		Use:   "import <file.xml>",
		Short: "Import an unencrypted XML export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runImport(cmd.Context(), args[0], mode)
		},
	}
	addModeFlag(cmd.Flags(), &mode, merge.Synchronize)
	return cmd
}

func (c *Cli) runImport(ctx context.Context, path string, mode merge.Mode) error {
	db, err := c.openDatabase(ctx, true)
	if err != nil {
		return err
	}
	defer c.closeDatabase(ctx, db)

	r, err := c.store.OpenRead(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer r.Close()

	res, err := db.Import(r, mode, c.status())
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}
	if res.Changed() {
		if err := c.save(ctx, db); err != nil {
			return err
		}
	}

	c.io.Printf("%s Imported %s (%s)\n", ok(), highlight(path), mode)
	c.printMergeResult(res)
	return nil
}

func (c *Cli) newPasswdCommand() *cobra.Command {
	var newKeyFile string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the master password and key file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPasswd(cmd.Context(), newKeyFile)
		},
	}
	cmd.Flags().StringVar(&newKeyFile, "new-key-file", "", "Key file for the new composite key")
	return cmd
}

func (c *Cli) runPasswd(ctx context.Context, newKeyFile string) error {
	db, err := c.openDatabase(ctx, true)
	if err != nil {
		return err
	}
	defer c.closeDatabase(ctx, db)

	// Новый пароль всегда запрашивается интерактивно
	c.io.Println("Enter the new master password.")
	password, err := c.promptPassword(true)
	if err != nil {
		return err
	}
	key, err := c.buildKey(ctx, password, newKeyFile)
	if err != nil {
		return err
	}

	if err := db.ChangeKey(key); err != nil {
		return fmt.Errorf("failed to change key: %w", err)
	}
	if err := c.save(ctx, db); err != nil {
		return err
	}

	c.io.Printf("%s Master key changed\n", ok())
	return nil
}
