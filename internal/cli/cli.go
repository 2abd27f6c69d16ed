// Package cli implements the keepvault command line on top of cobra.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iudanet/keepvault/internal/iocli"
	"github.com/iudanet/keepvault/internal/kdbx"
	"github.com/iudanet/keepvault/internal/models"
	"github.com/iudanet/keepvault/internal/status"
	"github.com/iudanet/keepvault/internal/storage"
	"github.com/iudanet/keepvault/internal/validation"
)

var (
	// ErrEntryNotFound indicates that no entry matches the given id or title
	ErrEntryNotFound = errors.New("entry not found")

	// ErrAmbiguousEntry indicates that several entries share the given title
	ErrAmbiguousEntry = errors.New("several entries match, use the entry id")

	// ErrGroupNotFound indicates a group path that does not exist
	ErrGroupNotFound = errors.New("group not found")
)

// Options - глобальные флаги командной строки
type Options struct {
	DBPath       string
	KeyFile      string
	PasswordFile string
	Password     string
	StatePath    string
	Debug        bool
	Repair       bool
	NoLock       bool
}

// VersionInfo is set via ldflags during build.
type VersionInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

type Cli struct {
	io      iocli.IO
	store   storage.ByteStore
	logger  *slog.Logger
	logOut  io.Writer
	getenv  func(string) string
	version VersionInfo
	opts    Options
}

// New creates the command line application. store resolves database, key
// file and export paths.
func New(io iocli.IO, store storage.ByteStore, version VersionInfo) *Cli {
	return &Cli{
		io:      io,
		store:   store,
		logger:  slog.New(slog.NewTextHandler(os.Stderr, nil)),
		logOut:  os.Stderr,
		getenv:  os.Getenv,
		version: version,
	}
}

// RootCommand builds the command tree.
func (c *Cli) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "keepvault",
		Short: "KeepVault - a password database in the KDBX 3.1 format",
		Long: `KeepVault stores passwords and other secrets in an encrypted KDBX 3.1 file.

Master Password Priority (highest to lowest):
  1. KEEPVAULT_MASTER_PASSWORD environment variable
  2. --password-file (file path)
  3. --password (command line)
  4. Interactive prompt (fallback)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if c.opts.Debug {
				level = slog.LevelDebug
			}
			c.logger = slog.New(slog.NewTextHandler(c.logOut, &slog.HandlerOptions{Level: level}))
			c.logger.Debug("starting command", "command", cmd.CommandPath(), "db", c.opts.DBPath)
		},
	}

	fs := root.PersistentFlags()
	fs.StringVar(&c.opts.DBPath, "db", "keepvault.kdbx", "Path to the database file")
	fs.StringVar(&c.opts.KeyFile, "key-file", "", "Path to a key file, part of the composite key")
	fs.StringVar(&c.opts.PasswordFile, "password-file", "", "Path to file containing master password")
	fs.StringVar(&c.opts.Password, "password", "", "Master password (not recommended, use env var or file)")
	fs.StringVar(&c.opts.StatePath, "state", "keepvault.state", "Path to the local state database")
	fs.BoolVar(&c.opts.Debug, "debug", false, "Enable debug output")
	fs.BoolVar(&c.opts.Repair, "repair", false, "Open damaged databases, ignoring the header hash")
	fs.BoolVar(&c.opts.NoLock, "no-lock", false, "Do not create the lock file")

	root.AddCommand(
		c.newInitCommand(),
		c.newAddCommand(),
		c.newListCommand(),
		c.newShowCommand(),
		c.newEditCommand(),
		c.newRemoveCommand(),
		c.newHistoryCommand(),
		c.newPasswdCommand(),
		c.newMergeCommand(),
		c.newExportCommand(),
		c.newImportCommand(),
		c.newSyncCommand(),
		c.newBenchmarkCommand(),
		c.newKeyFileCommand(),
		c.newVersionCommand(),
	)
	return root
}

func (c *Cli) status() status.Logger {
	return status.NewSlogLogger(c.logger)
}

// openDatabase opens the database at --db. Commands that write take the
// lock unless --no-lock is given.
func (c *Cli) openDatabase(ctx context.Context, write bool) (*kdbx.Database, error) {
	key, err := c.compositeKey(ctx, false)
	if err != nil {
		return nil, err
	}

	db, err := kdbx.Open(ctx, c.store, c.opts.DBPath, key, kdbx.OpenOptions{
		Status:     c.status(),
		Logger:     c.logger,
		RepairMode: c.opts.Repair,
		UseLock:    write && !c.opts.NoLock,
	})
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, fmt.Errorf("database %s not found. Please run 'keepvault init' first", c.opts.DBPath)
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// closeDatabase releases the lock taken by openDatabase.
func (c *Cli) closeDatabase(ctx context.Context, db *kdbx.Database) {
	if err := db.Close(ctx); err != nil {
		c.logger.Warn("failed to release lock", "path", db.Path(), "error", err)
	}
}

// findEntry resolves an entry by its UUID or by an exact, case-insensitive
// title match. Entries in the recycle bin match only by UUID.
func findEntry(db *models.Database, ref string) (*models.Entry, error) {
	if id, err := uuid.Parse(ref); err == nil {
		if e := db.FindEntry(id); e != nil {
			return e, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, ref)
	}

	found := db.Root.FindEntries(func(e *models.Entry) bool {
		return strings.EqualFold(e.Title(), ref) && !db.InRecycleBin(e)
	}, true)
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, ref)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %d entries titled %q", ErrAmbiguousEntry, len(found), ref)
	}
}

// findGroup walks a path like "Work/Servers" from the root. With create set,
// missing groups are added.
func findGroup(db *models.Database, path string, create bool) (*models.Group, error) {
	if err := validation.ValidateGroupPath(path); err != nil {
		return nil, err
	}

	g := db.Root
	if path == "" {
		return g, nil
	}
	for _, name := range strings.Split(path, "/") {
		var next *models.Group
		for _, sub := range g.Groups() {
			if sub.Name == name {
				next = sub
				break
			}
		}
		if next == nil {
			if !create {
				return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, path)
			}
			next = models.NewGroup(name)
			g.AddGroup(next, true, true)
			db.Modified = true
		}
		g = next
	}
	return g, nil
}
