package kdbx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/iudanet/keepvault/internal/keys"
	"github.com/iudanet/keepvault/internal/merge"
	"github.com/iudanet/keepvault/internal/models"
	"github.com/iudanet/keepvault/internal/status"
	"github.com/iudanet/keepvault/internal/storage"
	"github.com/iudanet/keepvault/internal/xmltree"
)

// DefaultRootName is the root group name of a new database.
const DefaultRootName = "Database"

// OpenOptions control Open.
type OpenOptions struct {
	Status status.Logger
	Logger *slog.Logger
	// RepairMode skips block hash and header hash verification
	RepairMode bool
	// UseLock creates <path>.lock and fails when another owner holds it
	UseLock bool
}

// Database is an open database bound to a file on a ByteStore.
type Database struct {
	*models.Database

	store storage.ByteStore
	lock  *Lock
	log   *slog.Logger
	path  string
}

// New creates an empty unsaved database protected by key.
func New(key *keys.CompositeKey) *Database {
	db := models.NewDatabase(DefaultRootName, key)
	db.Meta.SetName(DefaultRootName)
	return &Database{Database: db, log: slog.Default()}
}

// Open reads the database at path.
func Open(ctx context.Context, store storage.ByteStore, path string, key *keys.CompositeKey, opts OpenOptions) (*Database, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	var lock *Lock
	if opts.UseLock {
		l, err := AcquireLock(ctx, store, path)
		if err != nil {
			return nil, err
		}
		lock = l
	}

	db, err := load(ctx, store, path, key, DecodeOptions{
		Status:     opts.Status,
		Logger:     log,
		RepairMode: opts.RepairMode,
	})
	if err != nil {
		if lock != nil {
			if rerr := lock.Release(ctx); rerr != nil {
				log.Error("failed to release lock", "path", path, "error", rerr)
			}
		}
		return nil, err
	}

	log.Debug("database opened", "path", path, "repair", opts.RepairMode)
	return &Database{Database: db, store: store, path: path, lock: lock, log: log}, nil
}

func load(ctx context.Context, store storage.ByteStore, path string, key *keys.CompositeKey, opts DecodeOptions) (*models.Database, error) {
	r, err := store.OpenRead(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer r.Close()

	return Decode(r, key, opts)
}

// Path returns the file the database is bound to, empty for a new database.
func (d *Database) Path() string {
	return d.path
}

// Locked reports whether the database holds its lock file.
func (d *Database) Locked() bool {
	return d.lock != nil
}

// Save writes the database back to its file. The previous file is replaced
// only after the new content has been written completely.
func (d *Database) Save(ctx context.Context, st status.Logger) error {
	if d.store == nil || d.path == "" {
		return ErrNoPath
	}
	if err := d.checkLock(ctx); err != nil {
		return err
	}
	st = status.OrNop(st)
	st.StartLogging("save")
	defer st.EndLogging()

	tx, err := storage.BeginTransaction(ctx, d.store, d.path)
	if err != nil {
		return err
	}
	if err := Encode(tx.Writer(), d.Database, st); err != nil {
		if rerr := tx.Rollback(ctx); rerr != nil {
			d.log.Error("failed to roll back save", "path", d.path, "error", rerr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	d.Modified = false
	d.log.Debug("database saved", "path", d.path)
	return nil
}

// checkLock fails when the lock file of the bound path belongs to another
// owner. A missing lock file does not block the save.
func (d *Database) checkLock(ctx context.Context) error {
	owner, err := ReadLock(ctx, d.store, d.path)
	if err != nil {
		return err
	}
	if owner == nil {
		return nil
	}
	if d.lock != nil && d.lock.path == d.path && owner.ID == d.lock.Info.ID {
		return nil
	}
	return &LockHeldError{Owner: *owner}
}

// SaveAs writes the database to a new location and rebinds it there. A held
// lock moves to the new path.
func (d *Database) SaveAs(ctx context.Context, store storage.ByteStore, path string, st status.Logger) error {
	var lock *Lock
	if d.lock != nil && (store != d.store || path != d.path) {
		l, err := AcquireLock(ctx, store, path)
		if err != nil {
			return err
		}
		lock = l
	}

	prevStore, prevPath, prevLock := d.store, d.path, d.lock
	d.store, d.path = store, path
	if lock != nil {
		d.lock = lock
	}
	if err := d.Save(ctx, st); err != nil {
		d.store, d.path, d.lock = prevStore, prevPath, prevLock
		if lock != nil {
			_ = lock.Release(ctx)
		}
		return err
	}

	if lock != nil {
		if err := prevLock.Release(ctx); err != nil {
			d.log.Warn("failed to release previous lock", "path", prevPath, "error", err)
		}
	}
	return nil
}

// Close releases the lock file. The in-memory tree stays usable.
func (d *Database) Close(ctx context.Context) error {
	if d.lock == nil {
		return nil
	}
	err := d.lock.Release(ctx)
	d.lock = nil
	return err
}

// ChangeKey replaces the composite key. The new key applies on the next save.
func (d *Database) ChangeKey(key *keys.CompositeKey) error {
	if key == nil || key.Len() == 0 {
		return ErrNoKey
	}
	d.Key = key
	d.Meta.MasterKeyChanged = models.Now()
	d.Modified = true
	return nil
}

// Export writes the plain XML form of the database. With entries set, only
// those entries (with their history) are exported under an empty root.
func (d *Database) Export(w io.Writer, entries []*models.Entry) error {
	src := d.Database
	if entries != nil {
		src = d.subset(entries)
	}
	if err := xmltree.Write(w, src, xmltree.WriteOptions{Format: xmltree.FormatPlain}); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

func (d *Database) subset(entries []*models.Entry) *models.Database {
	c := *d.Database
	c.Meta = d.Meta.Clone()
	c.DeletedObjects = nil
	c.Root = models.NewGroup(d.Root.Name)
	c.Root.UUID = d.Root.UUID
	for _, e := range entries {
		c.Root.AddEntry(e.Clone(true), true, false)
	}
	return &c
}

// Import reads a plain XML export and merges it in with the given mode.
func (d *Database) Import(r io.Reader, mode merge.Mode, st status.Logger) (*merge.Result, error) {
	src := models.NewDatabase("", nil)
	if err := xmltree.Read(r, src, nil, xmltree.FormatPlain); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptFile, err)
	}
	return d.MergeIn(src, mode, st)
}

// MergeIn merges source into the database.
func (d *Database) MergeIn(source *models.Database, mode merge.Mode, st status.Logger) (*merge.Result, error) {
	res, err := merge.MergeIn(d.Database, source, mode, merge.Options{
		Status: st,
		Logger: d.log,
	})
	if err != nil {
		if errors.Is(err, merge.ErrInvariant) {
			d.log.Error("merge left the database inconsistent", "error", err)
		}
		return res, fmt.Errorf("failed to merge: %w", err)
	}
	return res, nil
}
